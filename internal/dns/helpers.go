package dns

import "strings"

// Fqdn returns the name in trailing-dot form.
// e.g. "app.example.com" → "app.example.com."
func Fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// NamesEqual compares two record names ignoring case and trailing dots.
func NamesEqual(a, b string) bool {
	return strings.EqualFold(Fqdn(a), Fqdn(b))
}
