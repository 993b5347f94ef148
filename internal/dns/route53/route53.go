package route53

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/go-logr/logr"

	"github.com/davehawkins/fleet-dns-manager/internal/dns"
)

func init() {
	dns.Register("route53", func(ctx context.Context, log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(ctx, log, settings)
	})
}

// changeComment is attached to every record-set replacement.
const changeComment = "managed by fleet-dns-manager"

// api is the slice of the Route53 client the provider uses.
type api interface {
	ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Provider implements dns.Provider against Amazon Route53.
type Provider struct {
	client     api
	defaultTTL int64
	log        logr.Logger
}

// New creates a Route53 provider from the given settings map.
// Optional settings: region, endpoint (for local simulators), default_ttl
// (default 300).
func New(ctx context.Context, log logr.Logger, settings map[string]string) (*Provider, error) {
	var ttl int64 = 300
	if v := settings["default_ttl"]; v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("route53: invalid default_ttl %q: %w", v, err)
		}
		ttl = parsed
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region := settings["region"]; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	endpoint := settings["endpoint"]
	if endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("route53: load AWS config: %w", err)
	}

	var client *route53.Client
	if endpoint != "" {
		client = route53.NewFromConfig(cfg, func(o *route53.Options) { o.BaseEndpoint = aws.String(endpoint) })
	} else {
		client = route53.NewFromConfig(cfg)
	}

	return &Provider{client: client, defaultTTL: ttl, log: log}, nil
}

// ReadRecordSet returns the address values of the named A record set.
// A record that does not exist reads as an empty list.
func (p *Provider) ReadRecordSet(ctx context.Context, zoneID, name string) ([]string, error) {
	out, err := p.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(dns.Fqdn(name)),
		StartRecordType: types.RRTypeA,
	})
	if err != nil {
		return nil, fmt.Errorf("route53: list record sets in zone %s: %w", zoneID, err)
	}

	addresses := []string{}
	for _, rrs := range out.ResourceRecordSets {
		if rrs.Type != types.RRTypeA || !dns.NamesEqual(aws.ToString(rrs.Name), name) {
			continue
		}
		for _, rr := range rrs.ResourceRecords {
			addresses = append(addresses, aws.ToString(rr.Value))
		}
	}

	p.log.V(1).Info("read record set", "name", name, "addresses", addresses)
	return addresses, nil
}

// UpsertRecordSet replaces the named A record set with the given addresses.
func (p *Provider) UpsertRecordSet(ctx context.Context, zoneID, name string, ttl int64, addresses []string) error {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}

	records := make([]types.ResourceRecord, 0, len(addresses))
	for _, addr := range addresses {
		records = append(records, types.ResourceRecord{Value: aws.String(addr)})
	}

	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(changeComment),
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(dns.Fqdn(name)),
					Type:            types.RRTypeA,
					TTL:             aws.Int64(ttl),
					ResourceRecords: records,
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("route53: upsert record set %s: %w", name, err)
	}

	p.log.Info("record set replaced", "name", name, "addresses", addresses, "ttl", ttl)
	return nil
}
