package rdap

import "errors"

// Sentinel errors for the resolver and prober. Resolver errors are fatal to a
// run, per-domain errors are not: ErrNoCoverage marks a TLD the bootstrap map
// does not answer for and must never be reported as an available domain.
var (
	ErrSourceUnavailable = errors.New("rdap: bootstrap source unavailable")
	ErrMalformedSource   = errors.New("rdap: bootstrap payload malformed")
	ErrNoCoverage        = errors.New("rdap: no rdap coverage for tld")
	ErrInvalidDomain     = errors.New("rdap: invalid domain")
)
