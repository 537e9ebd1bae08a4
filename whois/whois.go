package whois

import (
	"strings"

	"github.com/likexian/whois-go"
	whois_parser "github.com/likexian/whois-parser-go"

	"github.com/osiloke/rdapwatch/rdap"
)

// CheckDomain performs a legacy WHOIS lookup for domains whose TLD has no
// RDAP coverage.
func CheckDomain(domain string) (info whois_parser.WhoisInfo, err error) {
	whois_raw, err := whois.Whois(domain)
	if err != nil {
		return
	}
	return whois_parser.Parse(whois_raw)
}

// CheckRecord runs a WHOIS lookup and converts the result into the same
// normalized record shape the RDAP prober produces. A lookup failure becomes
// an unknown record; it is never reported as available, since WHOIS errors
// say nothing about registration state.
func CheckRecord(domain string) rdap.Record {
	domain = strings.ToLower(strings.TrimSpace(domain))
	info, err := CheckDomain(domain)
	if err != nil {
		return rdap.Record{Domain: domain, Available: rdap.Unknown, Err: err.Error()}
	}
	return FromWhoisInfo(domain, info)
}

// FromWhoisInfo maps a parsed WHOIS response onto a Record.
func FromWhoisInfo(domain string, info whois_parser.WhoisInfo) rdap.Record {
	// Parsed responses with no registration data at all usually mean the
	// registry answered with a "no match" page.
	if info.Registrar.DomainName == "" && info.Registrar.CreatedDate == "" && info.Registrar.ExpirationDate == "" {
		return rdap.Record{Domain: domain, Available: rdap.Available}
	}
	rec := rdap.Record{
		Domain:         domain,
		Available:      rdap.Registered,
		RegisteredDate: info.Registrar.CreatedDate,
		ExpirationDate: info.Registrar.ExpirationDate,
		LastChanged:    info.Registrar.UpdatedDate,
		Registrar:      strings.ToLower(info.Registrar.RegistrarName),
	}
	if info.Registrar.DomainStatus != "" {
		rec.Statuses = strings.Fields(info.Registrar.DomainStatus)
	}
	return rec
}
