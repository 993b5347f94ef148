// Package arn decomposes AWS resource identifiers into the positional
// fields the individual service APIs actually accept. Most APIs cannot
// take an ARN directly; they want a name, a URL, or a qualifier pulled
// out of it.
//
// Parsing is best-effort by contract: any string is accepted, and fields
// that cannot be extracted are left empty. No validation is performed.
package arn

import "strings"

// ARN holds the decomposed fields of a resource identifier. A field is
// the empty string when the input had too few segments at its position.
type ARN struct {
	Raw          string
	Partition    string
	Service      string
	Region       string
	AccountID    string
	ResourceType string
	Resource     string
	Qualifier    string
}

// Parse splits an ARN-shaped string into its positional fields. It never
// fails; malformed input degrades to empty fields.
//
// Slashes are treated as segment separators, same as colons. Segments
// 1-4 map to Partition/Service/Region/AccountID. When the string has
// exactly six segments, the sixth is the Resource and there is no
// ResourceType (older-style ARNs); with seven or more, the sixth is the
// ResourceType and the seventh the Resource. An eighth segment, if
// present, is the Qualifier.
//
// Autoscaling group ARNs get one more rule: their API wants the group
// name, which is always the last segment, so for
// service=autoscaling/resourceType=autoScalingGroup the Qualifier is
// overwritten with the final segment regardless of position.
func Parse(s string) ARN {
	out := ARN{Raw: s}

	parts := strings.Split(strings.ReplaceAll(s, "/", ":"), ":")

	out.Partition = segment(parts, 1)
	out.Service = segment(parts, 2)
	out.Region = segment(parts, 3)
	out.AccountID = segment(parts, 4)

	if len(parts) == 6 {
		out.Resource = segment(parts, 5)
	} else {
		out.ResourceType = segment(parts, 5)
		out.Resource = segment(parts, 6)
		out.Qualifier = segment(parts, 7)
	}

	if out.Service == "autoscaling" && out.ResourceType == "autoScalingGroup" {
		out.Qualifier = parts[len(parts)-1]
	}

	return out
}

// segment returns parts[i], or "" when i is out of range.
func segment(parts []string, i int) string {
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}

// QueueURL synthesizes the SQS queue URL for a queue ARN. This is pure
// string construction; nothing checks that the result is reachable.
func (a ARN) QueueURL() string {
	return "https://" + a.Service + "." + a.Region + ".amazonaws.com/" + a.AccountID + "/" + a.Resource
}

// QueueName returns the queue name of an SQS queue ARN.
func (a ARN) QueueName() string { return a.Resource }

// TableName returns the table name of a DynamoDB table ARN.
func (a ARN) TableName() string { return a.Resource }

// FunctionName returns the function name of a Lambda function ARN.
func (a ARN) FunctionName() string { return a.Resource }

// Bucket returns the bucket name of an S3 bucket ARN.
func (a ARN) Bucket() string { return a.Resource }

// AutoScaleGroupName returns the group name of an autoscaling group ARN,
// which lives in the qualifier position.
func (a ARN) AutoScaleGroupName() string { return a.Qualifier }
