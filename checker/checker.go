// Package checker wires the bootstrap resolver and the availability prober
// into single checks and batch scans, throttled per registry endpoint.
package checker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	logxi "github.com/mgutz/logxi/v1"

	"github.com/osiloke/rdapwatch/metrics"
	"github.com/osiloke/rdapwatch/rdap"
	"github.com/osiloke/rdapwatch/whois"
)

var log = logxi.New("checker")

func init() {
	now.TimeFormats = append(now.TimeFormats, "2006-01-02T15:04:05.999999999Z07:00")
}

// Sink receives every availability record as soon as it is produced. The
// history store implements it; the checker never sees the storage schema.
type Sink interface {
	SaveLookup(domain string, checkedAt time.Time, rec rdap.Record) error
}

// Options tunes a Checker.
type Options struct {
	// Workers bounds concurrent probes in a batch.
	Workers uint
	// RatePerHost and RateEvery form the per-endpoint request budget,
	// replacing the fixed one second sleep the old interactive tool used.
	RatePerHost int
	RateEvery   time.Duration
	// Timeout bounds each registry query.
	Timeout time.Duration
	// WhoisFallback enables a legacy WHOIS lookup for TLDs without RDAP
	// coverage on single checks.
	WhoisFallback bool
}

// DefaultOptions mirrors the legacy tool: one request per endpoint per
// second, ten workers.
func DefaultOptions() Options {
	return Options{
		Workers:     10,
		RatePerHost: 1,
		RateEvery:   time.Second,
		Timeout:     rdap.ProbeTimeout,
	}
}

// Result is the per-domain outcome of a check: exactly one is produced for
// every domain in a batch.
type Result struct {
	Domain  string      `json:"domain"`
	Source  string      `json:"source,omitempty"` // rdap or whois
	Skipped bool        `json:"skipped,omitempty"`
	Record  rdap.Record `json:"record"`
}

// Outcome renders the result as one word for log and summary lines.
func (r Result) Outcome() string {
	if r.Skipped {
		return "no-coverage"
	}
	return string(r.Record.Available)
}

// Checker checks domains against their authoritative RDAP endpoints.
type Checker struct {
	bootstrap *rdap.Bootstrap
	prober    *rdap.Prober
	limiter   *hostLimiter
	opts      Options
}

// New builds a Checker over a loaded bootstrap map.
func New(bootstrap *rdap.Bootstrap, opts Options) *Checker {
	if opts.Workers == 0 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 1
	}
	if opts.RateEvery <= 0 {
		opts.RateEvery = time.Second
	}
	return &Checker{
		bootstrap: bootstrap,
		prober:    &rdap.Prober{Timeout: opts.Timeout},
		limiter:   newHostLimiter(opts.RatePerHost, opts.RateEvery),
		opts:      opts,
	}
}

// Check resolves and probes one fully qualified domain. It returns
// rdap.ErrNoCoverage (with a skipped Result) when the TLD has no endpoint and
// the WHOIS fallback is off, and rdap.ErrInvalidDomain for malformed input.
// All probe-level faults are contained in the Result's record.
func (c *Checker) Check(ctx context.Context, domain string) (Result, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !strings.Contains(domain, ".") {
		return Result{Domain: domain}, fmt.Errorf("%w: %q", rdap.ErrInvalidDomain, domain)
	}

	endpoint, ok := c.bootstrap.ResolveDomain(domain)
	if !ok {
		metrics.NoCoverageTotal.Inc()
		if c.opts.WhoisFallback {
			log.Info("no rdap coverage, falling back to whois", "domain", domain)
			rec := whois.CheckRecord(domain)
			metrics.ChecksTotal.WithLabelValues(string(rec.Available)).Inc()
			return Result{Domain: domain, Source: "whois", Record: rec}, nil
		}
		return Result{Domain: domain, Skipped: true},
			fmt.Errorf("%w: %s", rdap.ErrNoCoverage, domain)
	}

	if err := c.limiter.wait(ctx, endpoint); err != nil {
		return Result{Domain: domain}, err
	}

	started := time.Now()
	rec, err := c.prober.Probe(ctx, domain, endpoint)
	if err != nil {
		return Result{Domain: domain}, err
	}
	metrics.ProbeDuration.Observe(time.Since(started).Seconds())
	metrics.ChecksTotal.WithLabelValues(string(rec.Available)).Inc()
	return Result{Domain: domain, Source: "rdap", Record: rec}, nil
}
