package fleet

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/go-logr/logr"
)

// ec2API is the slice of the EC2 client the fleet client uses.
type ec2API interface {
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// asgAPI is the slice of the autoscaling client the fleet client uses.
type asgAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, opts ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	CompleteLifecycleAction(ctx context.Context, in *autoscaling.CompleteLifecycleActionInput, opts ...func(*autoscaling.Options)) (*autoscaling.CompleteLifecycleActionOutput, error)
}

// Client implements Resolver and Membership against EC2 and the
// autoscaling API.
type Client struct {
	ec2 ec2API
	asg asgAPI
	log logr.Logger
}

// Options configures the AWS clients.
type Options struct {
	Region   string
	Endpoint string // base endpoint override, used with local simulators
}

// NewClient initializes the EC2 and autoscaling clients from the default
// AWS config chain.
func NewClient(ctx context.Context, log logr.Logger, opts Options) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("fleet: load AWS config: %w", err)
	}

	if opts.Endpoint != "" {
		return &Client{
			ec2: ec2.NewFromConfig(cfg, func(o *ec2.Options) { o.BaseEndpoint = aws.String(opts.Endpoint) }),
			asg: autoscaling.NewFromConfig(cfg, func(o *autoscaling.Options) { o.BaseEndpoint = aws.String(opts.Endpoint) }),
			log: log,
		}, nil
	}
	return &Client{
		ec2: ec2.NewFromConfig(cfg),
		asg: autoscaling.NewFromConfig(cfg),
		log: log,
	}, nil
}

// PublicAddress returns the public IP of the instance, or "" when it has
// none (stopped, or in a subnet without public addressing).
func (c *Client) PublicAddress(ctx context.Context, instanceID string) (string, error) {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return "", fmt.Errorf("fleet: describe instance %s: %w", instanceID, err)
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			if aws.ToString(inst.InstanceId) == instanceID {
				return aws.ToString(inst.PublicIpAddress), nil
			}
		}
	}
	return "", fmt.Errorf("fleet: instance %s not found", instanceID)
}

// ListInstances returns the ids of all instances currently in the group.
func (c *Client) ListInstances(ctx context.Context, group string) ([]string, error) {
	out, err := c.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{group},
	})
	if err != nil {
		return nil, fmt.Errorf("fleet: describe group %s: %w", group, err)
	}
	if len(out.AutoScalingGroups) == 0 {
		return nil, fmt.Errorf("fleet: group %s not found", group)
	}

	ids := make([]string, 0, len(out.AutoScalingGroups[0].Instances))
	for _, inst := range out.AutoScalingGroups[0].Instances {
		ids = append(ids, aws.ToString(inst.InstanceId))
	}
	c.log.V(1).Info("listed group members", "group", group, "count", len(ids))
	return ids, nil
}

// CompleteTransition acknowledges the pending lifecycle action for the
// instance with result CONTINUE.
func (c *Client) CompleteTransition(ctx context.Context, group, hookName, instanceID string) error {
	_, err := c.asg.CompleteLifecycleAction(ctx, &autoscaling.CompleteLifecycleActionInput{
		AutoScalingGroupName:  aws.String(group),
		LifecycleHookName:     aws.String(hookName),
		InstanceId:            aws.String(instanceID),
		LifecycleActionResult: aws.String(ResultContinue),
	})
	if err != nil {
		return fmt.Errorf("fleet: complete lifecycle action for %s: %w", instanceID, err)
	}
	c.log.Info("lifecycle transition acknowledged", "group", group, "instance", instanceID, "hook", hookName)
	return nil
}
