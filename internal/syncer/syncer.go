// Package syncer keeps the DNS host record in step with the live
// membership of the autoscaling group.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/davehawkins/fleet-dns-manager/internal/config"
	"github.com/davehawkins/fleet-dns-manager/internal/dns"
	"github.com/davehawkins/fleet-dns-manager/internal/fleet"
	"github.com/davehawkins/fleet-dns-manager/internal/lifecycle"
)

// Synchronizer computes and applies record-set changes in response to
// lifecycle events, or rebuilds the record from scratch when no event is
// recognized.
type Synchronizer struct {
	Log       logr.Logger
	Cfg       *config.Config
	DNS       dns.Provider
	Instances fleet.Resolver
	Fleet     fleet.Membership
}

// Handle routes the invocation: a recognized lifecycle event drives an
// incremental record change, anything else triggers baseline
// reconciliation.
func (s *Synchronizer) Handle(ctx context.Context, ev lifecycle.Event) error {
	if ev.Recognized() {
		return s.handleTransition(ctx, ev.Detail)
	}
	s.Log.Info("no lifecycle event recognized, running baseline reconciliation")
	return s.Reconcile(ctx)
}

// handleTransition applies the record change for a single lifecycle
// action. The transition is acknowledged whatever happens on the DNS
// side: a stuck lifecycle hook blocks the whole scaling operation, a
// stale record heals on the next reconciliation.
func (s *Synchronizer) handleTransition(ctx context.Context, d lifecycle.Detail) (err error) {
	defer func() {
		if ackErr := s.Fleet.CompleteTransition(ctx, s.Cfg.GroupName, d.LifecycleHookName, d.EC2InstanceID); ackErr != nil {
			err = errors.Join(err, ackErr)
		}
	}()

	addr, err := s.Instances.PublicAddress(ctx, d.EC2InstanceID)
	if err != nil {
		return fmt.Errorf("resolving address of %s: %w", d.EC2InstanceID, err)
	}

	switch d.LifecycleTransition {
	case lifecycle.Launching:
		if addr == "" {
			return fmt.Errorf("launching instance %s has no public address", d.EC2InstanceID)
		}
		return s.addAddress(ctx, addr)
	case lifecycle.Terminating:
		return s.removeAddress(ctx, addr)
	default:
		s.Log.Error(nil, "no valid lifecycle transition identified",
			"transition", d.LifecycleTransition, "instance", d.EC2InstanceID)
		return nil
	}
}

// addAddress appends the new instance's address to the record set.
func (s *Synchronizer) addAddress(ctx context.Context, addr string) error {
	current, err := s.DNS.ReadRecordSet(ctx, s.Cfg.ZoneID, s.Cfg.HostRecord)
	if err != nil {
		return fmt.Errorf("reading record set: %w", err)
	}

	if s.Cfg.DedupeOnLaunch && slices.Contains(current, addr) {
		s.Log.Info("address already present, skipping insert", "address", addr)
		return nil
	}

	updated := append(slices.Clone(current), addr)
	if err := s.DNS.UpsertRecordSet(ctx, s.Cfg.ZoneID, s.Cfg.HostRecord, s.Cfg.RecordTTL, updated); err != nil {
		return fmt.Errorf("writing record set: %w", err)
	}
	s.Log.Info("host record updated with new instance address", "address", addr)
	return nil
}

// removeAddress drops the terminating instance's address from the record
// set. A removal that finds no match is a logged no-op unless the
// strict-remove policy is on.
func (s *Synchronizer) removeAddress(ctx context.Context, addr string) error {
	current, err := s.DNS.ReadRecordSet(ctx, s.Cfg.ZoneID, s.Cfg.HostRecord)
	if err != nil {
		return fmt.Errorf("reading record set: %w", err)
	}

	updated := slices.DeleteFunc(slices.Clone(current), func(a string) bool { return a == addr })
	if len(updated) == len(current) {
		if s.Cfg.StrictRemove {
			return fmt.Errorf("address %q not present in record set", addr)
		}
		s.Log.Info("address not present in record set, nothing to remove", "address", addr)
		return nil
	}

	if err := s.DNS.UpsertRecordSet(ctx, s.Cfg.ZoneID, s.Cfg.HostRecord, s.Cfg.RecordTTL, updated); err != nil {
		return fmt.Errorf("writing record set: %w", err)
	}
	s.Log.Info("host record updated to remove retiring instance address", "address", addr)
	return nil
}

// Reconcile assumes the record may be stale or corrupted and rebuilds it
// from the group's authoritative membership, replacing whatever is there.
func (s *Synchronizer) Reconcile(ctx context.Context) error {
	ids, err := s.Fleet.ListInstances(ctx, s.Cfg.GroupName)
	if err != nil {
		return fmt.Errorf("listing group members: %w", err)
	}

	addresses := make([]string, 0, len(ids))
	for _, id := range ids {
		addr, err := s.Instances.PublicAddress(ctx, id)
		if err != nil {
			return fmt.Errorf("resolving address of %s: %w", id, err)
		}
		if addr == "" {
			s.Log.Info("member has no public address, skipping", "instance", id)
			continue
		}
		addresses = append(addresses, addr)
	}

	if err := s.DNS.UpsertRecordSet(ctx, s.Cfg.ZoneID, s.Cfg.HostRecord, s.Cfg.RecordTTL, addresses); err != nil {
		return fmt.Errorf("writing record set: %w", err)
	}
	s.Log.Info("host record rebuilt from current fleet membership",
		"group", s.Cfg.GroupName, "addresses", addresses)
	return nil
}
