package syncer

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/go-logr/logr"

	"github.com/davehawkins/fleet-dns-manager/internal/config"
	"github.com/davehawkins/fleet-dns-manager/internal/lifecycle"
)

// mockDNS records record-set reads and writes for test assertions.
type mockDNS struct {
	mu       sync.Mutex
	current  []string // what ReadRecordSet returns
	written  [][]string
	readErr  error
	writeErr error
}

func (m *mockDNS) ReadRecordSet(_ context.Context, zoneID, name string) ([]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return slices.Clone(m.current), nil
}

func (m *mockDNS) UpsertRecordSet(_ context.Context, zoneID, name string, ttl int64, addresses []string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, slices.Clone(addresses))
	return nil
}

func (m *mockDNS) lastWritten() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.written) == 0 {
		return nil
	}
	return m.written[len(m.written)-1]
}

// mockFleet implements fleet.Resolver and fleet.Membership.
type mockFleet struct {
	mu        sync.Mutex
	addresses map[string]string // instance id -> public address
	members   []string
	acked     []string // instance ids acknowledged
	ackErr    error
}

func (m *mockFleet) PublicAddress(_ context.Context, instanceID string) (string, error) {
	addr, ok := m.addresses[instanceID]
	if !ok {
		return "", errors.New("instance not found")
	}
	return addr, nil
}

func (m *mockFleet) ListInstances(_ context.Context, group string) ([]string, error) {
	return slices.Clone(m.members), nil
}

func (m *mockFleet) CompleteTransition(_ context.Context, group, hookName, instanceID string) error {
	if m.ackErr != nil {
		return m.ackErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, instanceID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ZoneID:     "Z123",
		HostRecord: "fleet.example.com.",
		GroupName:  "web-fleet",
		RecordTTL:  300,
	}
}

func newSynchronizer(cfg *config.Config, d *mockDNS, f *mockFleet) *Synchronizer {
	return &Synchronizer{
		Log:       logr.Discard(),
		Cfg:       cfg,
		DNS:       d,
		Instances: f,
		Fleet:     f,
	}
}

func launchEvent(instanceID string) lifecycle.Event {
	return lifecycle.Event{
		Source:     "aws.autoscaling",
		DetailType: "EC2 Instance-launch Lifecycle Action",
		Detail: lifecycle.Detail{
			EC2InstanceID:       instanceID,
			LifecycleTransition: lifecycle.Launching,
			LifecycleHookName:   "launch-hook",
		},
	}
}

func terminateEvent(instanceID string) lifecycle.Event {
	return lifecycle.Event{
		Source:     "aws.autoscaling",
		DetailType: "EC2 Instance-terminate Lifecycle Action",
		Detail: lifecycle.Detail{
			EC2InstanceID:       instanceID,
			LifecycleTransition: lifecycle.Terminating,
			LifecycleHookName:   "terminate-hook",
		},
	}
}

func TestHandle_Launching(t *testing.T) {
	d := &mockDNS{current: []string{"10.0.0.2", "10.0.0.3"}}
	f := &mockFleet{addresses: map[string]string{"i-new": "10.0.0.1"}}
	s := newSynchronizer(testConfig(), d, f)

	if err := s.Handle(context.Background(), launchEvent("i-new")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"10.0.0.2", "10.0.0.3", "10.0.0.1"}
	if !slices.Equal(d.lastWritten(), want) {
		t.Errorf("written record set = %v, want %v", d.lastWritten(), want)
	}
	if !slices.Equal(f.acked, []string{"i-new"}) {
		t.Errorf("acked = %v, want [i-new]", f.acked)
	}
}

func TestHandle_LaunchingDuplicate(t *testing.T) {
	tests := []struct {
		name      string
		dedupe    bool
		wantWrite []string // nil = no write expected
	}{
		{"dedupe off appends again", false, []string{"10.0.0.1", "10.0.0.1"}},
		{"dedupe on skips insert", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.DedupeOnLaunch = tt.dedupe
			d := &mockDNS{current: []string{"10.0.0.1"}}
			f := &mockFleet{addresses: map[string]string{"i-new": "10.0.0.1"}}
			s := newSynchronizer(cfg, d, f)

			if err := s.Handle(context.Background(), launchEvent("i-new")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(d.lastWritten(), tt.wantWrite) {
				t.Errorf("written record set = %v, want %v", d.lastWritten(), tt.wantWrite)
			}
			if !slices.Equal(f.acked, []string{"i-new"}) {
				t.Errorf("acked = %v, want [i-new]", f.acked)
			}
		})
	}
}

func TestHandle_Terminating(t *testing.T) {
	d := &mockDNS{current: []string{"10.0.0.1", "10.0.0.2"}}
	f := &mockFleet{addresses: map[string]string{"i-old": "10.0.0.1"}}
	s := newSynchronizer(testConfig(), d, f)

	if err := s.Handle(context.Background(), terminateEvent("i-old")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"10.0.0.2"}
	if !slices.Equal(d.lastWritten(), want) {
		t.Errorf("written record set = %v, want %v", d.lastWritten(), want)
	}
	if !slices.Equal(f.acked, []string{"i-old"}) {
		t.Errorf("acked = %v, want [i-old]", f.acked)
	}
}

func TestHandle_TerminatingNoMatch(t *testing.T) {
	t.Run("default is logged no-op", func(t *testing.T) {
		d := &mockDNS{current: []string{"10.0.0.2"}}
		f := &mockFleet{addresses: map[string]string{"i-old": "10.0.0.1"}}
		s := newSynchronizer(testConfig(), d, f)

		if err := s.Handle(context.Background(), terminateEvent("i-old")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.lastWritten() != nil {
			t.Errorf("expected no write, got %v", d.lastWritten())
		}
		if !slices.Equal(f.acked, []string{"i-old"}) {
			t.Errorf("acked = %v, want [i-old]", f.acked)
		}
	})

	t.Run("strict remove surfaces the error", func(t *testing.T) {
		cfg := testConfig()
		cfg.StrictRemove = true
		d := &mockDNS{current: []string{"10.0.0.2"}}
		f := &mockFleet{addresses: map[string]string{"i-old": "10.0.0.1"}}
		s := newSynchronizer(cfg, d, f)

		if err := s.Handle(context.Background(), terminateEvent("i-old")); err == nil {
			t.Fatal("expected error, got nil")
		}
		// The transition is still acknowledged.
		if !slices.Equal(f.acked, []string{"i-old"}) {
			t.Errorf("acked = %v, want [i-old]", f.acked)
		}
	})
}

func TestHandle_UnrecognizedTransition(t *testing.T) {
	d := &mockDNS{current: []string{"10.0.0.1"}}
	f := &mockFleet{addresses: map[string]string{"i-x": "10.0.0.9"}}
	s := newSynchronizer(testConfig(), d, f)

	ev := launchEvent("i-x")
	ev.Detail.LifecycleTransition = "autoscaling:EC2_INSTANCE_SOMETHING_ELSE"

	if err := s.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.lastWritten() != nil {
		t.Errorf("expected no record mutation, got %v", d.lastWritten())
	}
	// The fleet must not be left blocked.
	if !slices.Equal(f.acked, []string{"i-x"}) {
		t.Errorf("acked = %v, want [i-x]", f.acked)
	}
}

func TestHandle_BaselineReconciliation(t *testing.T) {
	d := &mockDNS{current: []string{"192.0.2.99"}} // stale content to discard
	f := &mockFleet{
		members:   []string{"i-1", "i-2"},
		addresses: map[string]string{"i-1": "10.0.0.1", "i-2": "10.0.0.2"},
	}
	s := newSynchronizer(testConfig(), d, f)

	if err := s.Handle(context.Background(), lifecycle.Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"10.0.0.1", "10.0.0.2"}
	if !slices.Equal(d.lastWritten(), want) {
		t.Errorf("written record set = %v, want %v", d.lastWritten(), want)
	}
	if len(f.acked) != 0 {
		t.Errorf("baseline path must not acknowledge transitions, acked %v", f.acked)
	}
}

func TestReconcile_SkipsMembersWithoutPublicAddress(t *testing.T) {
	d := &mockDNS{}
	f := &mockFleet{
		members:   []string{"i-1", "i-2"},
		addresses: map[string]string{"i-1": "10.0.0.1", "i-2": ""},
	}
	s := newSynchronizer(testConfig(), d, f)

	if err := s.Reconcile(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(d.lastWritten(), []string{"10.0.0.1"}) {
		t.Errorf("written record set = %v, want [10.0.0.1]", d.lastWritten())
	}
}

func TestReconcile_EmptyFleetClearsRecord(t *testing.T) {
	d := &mockDNS{current: []string{"10.0.0.1"}}
	f := &mockFleet{members: nil, addresses: map[string]string{}}
	s := newSynchronizer(testConfig(), d, f)

	if err := s.Reconcile(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := d.lastWritten()
	if got == nil || len(got) != 0 {
		t.Errorf("expected an explicit empty write, got %v (writes: %d)", got, len(d.written))
	}
}

func TestHandle_DNSWriteFailureStillAcknowledges(t *testing.T) {
	d := &mockDNS{current: []string{"10.0.0.2"}, writeErr: errors.New("route53 down")}
	f := &mockFleet{addresses: map[string]string{"i-new": "10.0.0.1"}}
	s := newSynchronizer(testConfig(), d, f)

	err := s.Handle(context.Background(), launchEvent("i-new"))
	if err == nil {
		t.Fatal("expected the DNS error to surface, got nil")
	}
	if !slices.Equal(f.acked, []string{"i-new"}) {
		t.Errorf("acked = %v, want [i-new]", f.acked)
	}
}

func TestHandle_ResolveFailureStillAcknowledges(t *testing.T) {
	d := &mockDNS{}
	f := &mockFleet{addresses: map[string]string{}} // resolver fails for any id
	s := newSynchronizer(testConfig(), d, f)

	err := s.Handle(context.Background(), launchEvent("i-gone"))
	if err == nil {
		t.Fatal("expected the resolve error to surface, got nil")
	}
	if !slices.Equal(f.acked, []string{"i-gone"}) {
		t.Errorf("acked = %v, want [i-gone]", f.acked)
	}
}

func TestHandle_AckFailureJoinsError(t *testing.T) {
	d := &mockDNS{current: []string{}, writeErr: errors.New("route53 down")}
	f := &mockFleet{
		addresses: map[string]string{"i-new": "10.0.0.1"},
		ackErr:    errors.New("hook already completed"),
	}
	s := newSynchronizer(testConfig(), d, f)

	err := s.Handle(context.Background(), launchEvent("i-new"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
