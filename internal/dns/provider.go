package dns

import "context"

// Provider is the interface DNS backends must implement. The record set
// is always replaced wholesale; add-one/remove-one logic happens in the
// caller before the write.
type Provider interface {
	// ReadRecordSet returns the address values of the named A record
	// set, or an empty slice when the record does not exist.
	ReadRecordSet(ctx context.Context, zoneID, name string) ([]string, error)

	// UpsertRecordSet replaces the named A record set with the given
	// addresses. The address list is required; callers pass an empty
	// slice explicitly to clear the record.
	UpsertRecordSet(ctx context.Context, zoneID, name string, ttl int64, addresses []string) error
}
