// Package fleet talks to the compute and autoscaling APIs on behalf of
// the synchronizer: resolving instance addresses, listing group members,
// and completing lifecycle actions.
package fleet

import "context"

// ResultContinue releases a lifecycle hook and lets the scaling
// operation proceed.
const ResultContinue = "CONTINUE"

// Resolver looks up the public address of a compute instance.
type Resolver interface {
	// PublicAddress returns the instance's public IP, or "" when the
	// instance has none.
	PublicAddress(ctx context.Context, instanceID string) (string, error)
}

// Membership exposes the autoscaling group: who is in it, and the
// acknowledgment that lets a pending lifecycle transition proceed.
type Membership interface {
	// ListInstances returns the instance ids currently in the group.
	ListInstances(ctx context.Context, group string) ([]string, error)

	// CompleteTransition acknowledges a pending lifecycle action with
	// result CONTINUE. Skipping this stalls the scaling operation.
	CompleteTransition(ctx context.Context, group, hookName, instanceID string) error
}
