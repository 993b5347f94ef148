// Package providers imports all DNS provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/davehawkins/fleet-dns-manager/internal/dns/route53"
)
