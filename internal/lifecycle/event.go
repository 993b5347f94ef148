// Package lifecycle defines the autoscaling lifecycle event shape the
// synchronizer is triggered with.
package lifecycle

// Transition is the lifecycle transition carried in an event detail.
type Transition string

const (
	Launching   Transition = "autoscaling:EC2_INSTANCE_LAUNCHING"
	Terminating Transition = "autoscaling:EC2_INSTANCE_TERMINATING"
)

const (
	sourceAutoscaling     = "aws.autoscaling"
	detailTypeLaunching   = "EC2 Instance-launch Lifecycle Action"
	detailTypeTerminating = "EC2 Instance-terminate Lifecycle Action"
)

// Detail is the payload of a lifecycle action event.
type Detail struct {
	EC2InstanceID       string     `json:"EC2InstanceId"`
	LifecycleTransition Transition `json:"LifecycleTransition"`
	LifecycleHookName   string     `json:"LifecycleHookName"`
}

// Event is the trigger payload. Anything that does not match the
// recognized autoscaling lifecycle shape routes the invocation to
// baseline reconciliation instead.
type Event struct {
	Source     string `json:"source"`
	DetailType string `json:"detail-type"`
	Detail     Detail `json:"detail"`
}

// Recognized reports whether the event is an autoscaling lifecycle
// action carrying an instance id.
func (e Event) Recognized() bool {
	if e.Source != sourceAutoscaling {
		return false
	}
	if e.DetailType != detailTypeLaunching && e.DetailType != detailTypeTerminating {
		return false
	}
	return e.Detail.EC2InstanceID != ""
}
