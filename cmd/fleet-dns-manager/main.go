package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/davehawkins/fleet-dns-manager/internal/config"
	"github.com/davehawkins/fleet-dns-manager/internal/dns"
	_ "github.com/davehawkins/fleet-dns-manager/internal/dns/providers"
	"github.com/davehawkins/fleet-dns-manager/internal/fleet"
	"github.com/davehawkins/fleet-dns-manager/internal/lifecycle"
	"github.com/davehawkins/fleet-dns-manager/internal/syncer"
)

var Version = "dev"

func main() {
	zl, err := newZapLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(zapr.NewLogger(zl)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newZapLogger() (*zap.Logger, error) {
	if os.Getenv("FLEET_DNS_DEV_LOG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(log logr.Logger) error {
	ctx := context.Background()

	log.WithName("setup").Info("starting fleet-dns-manager", "version", Version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	provider, err := dns.NewProvider(ctx, cfg.Provider, log.WithName("dns-"+cfg.Provider), cfg.ProviderSettings)
	if err != nil {
		return fmt.Errorf("unable to create DNS provider: %w", err)
	}

	fleetClient, err := fleet.NewClient(ctx, log.WithName("fleet"), fleet.Options{
		Endpoint: os.Getenv("AWS_ENDPOINT_URL"),
	})
	if err != nil {
		return fmt.Errorf("unable to create fleet client: %w", err)
	}

	s := &syncer.Synchronizer{
		Log:       log.WithName("syncer"),
		Cfg:       cfg,
		DNS:       provider,
		Instances: fleetClient,
		Fleet:     fleetClient,
	}

	// Inside Lambda the runtime drives invocations; anywhere else a
	// single baseline reconciliation is run and the process exits.
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(handler(log, s))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.Reconcile(ctx)
}

// handler adapts the synchronizer to the trigger boundary. The real
// error stays in the logs; the trigger always sees success so a DNS-side
// failure never turns into invocation retries that re-block scaling.
func handler(log logr.Logger, s *syncer.Synchronizer) func(ctx context.Context, raw json.RawMessage) (string, error) {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var ev lifecycle.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Not the lifecycle shape; the zero event routes to baseline.
			log.V(1).Info("payload is not a lifecycle event", "reason", err.Error())
		}

		if err := s.Handle(ctx, ev); err != nil {
			log.Error(err, "synchronization failed")
		}
		return "", nil
	}
}
