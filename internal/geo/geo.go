// Package geo resolves connecting IP addresses to country codes for view
// enrichment.
package geo

// Provider looks up the ISO 3166-1 alpha-2 country code for an IP address.
type Provider interface {
	CountryCode(ip string) (string, error)
	Close() error
}
