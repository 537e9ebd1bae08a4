package checker

import (
	"context"
	"errors"
	"time"

	pool "gopkg.in/go-playground/pool.v3"

	"github.com/osiloke/rdapwatch/rdap"
)

// ScanReport tallies one batch run. Completed counts outcomes actually
// produced, so an interrupted run still reports how far it got.
type ScanReport struct {
	Base        string
	Total       int
	Completed   int
	Available   int
	Registered  int
	Unknown     int
	Skipped     int
	Interrupted bool
	Results     []Result
}

// Scan checks base.<tld> for every tld in the list. Records are handed to the
// sink and the output files as they arrive; a context cancellation stops the
// batch cleanly after in-flight probes.
func (c *Checker) Scan(ctx context.Context, base string, tlds []string, sink Sink, out *OutFiles) (*ScanReport, error) {
	domains := make([]string, 0, len(tlds))
	for _, tld := range tlds {
		domains = append(domains, base+"."+tld)
	}
	report, err := c.run(ctx, domains, sink, out)
	if report != nil {
		report.Base = base
	}
	return report, err
}

// CheckAll probes a list of fully qualified domains, one result each. Used by
// watch mode, where the list comes from a file or a remote store.
func (c *Checker) CheckAll(ctx context.Context, domains []string, sink Sink) (*ScanReport, error) {
	return c.run(ctx, domains, sink, nil)
}

func (c *Checker) run(ctx context.Context, domains []string, sink Sink, out *OutFiles) (*ScanReport, error) {
	report := &ScanReport{Total: len(domains)}

	p := pool.NewLimited(c.opts.Workers)
	defer p.Close()
	batch := p.Batch()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			batch.Cancel()
		case <-done:
		}
	}()

	go func() {
		for _, domain := range domains {
			if ctx.Err() != nil {
				break
			}
			batch.Queue(c.checkWork(ctx, domain))
		}
		batch.QueueComplete()
	}()

	for r := range batch.Results() {
		if err := r.Error(); err != nil {
			log.Warn("work unit failed", "err", err.Error())
			continue
		}
		if r.Value() == nil {
			continue // cancelled before it ran
		}
		res := r.Value().(Result)
		report.add(res)
		log.Info("checked", "domain", res.Domain, "outcome", res.Outcome())

		if sink != nil && !res.Skipped {
			if err := sink.SaveLookup(res.Domain, time.Now(), res.Record); err != nil {
				log.Error("could not save lookup", "domain", res.Domain, "err", err.Error())
			}
		}
		if err := out.Add(res); err != nil {
			log.Error("could not write result file", "domain", res.Domain, "err", err.Error())
		}
	}

	if ctx.Err() != nil {
		report.Interrupted = true
		log.Warn("scan interrupted", "completed", report.Completed, "total", report.Total)
	}
	return report, nil
}

// checkWork wraps one domain check for the worker pool. Per-domain failures
// end up inside the Result so one broken TLD never aborts the batch.
func (c *Checker) checkWork(ctx context.Context, domain string) pool.WorkFunc {
	return func(wu pool.WorkUnit) (interface{}, error) {
		if wu.IsCancelled() || ctx.Err() != nil {
			return nil, nil
		}
		res, err := c.Check(ctx, domain)
		switch {
		case err == nil:
		case errors.Is(err, rdap.ErrNoCoverage):
			// legitimate skip, the result already says so
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, nil
		default:
			res.Record = rdap.Record{Domain: domain, Available: rdap.Unknown, Err: err.Error()}
		}
		return res, nil
	}
}

func (r *ScanReport) add(res Result) {
	r.Completed++
	r.Results = append(r.Results, res)
	switch {
	case res.Skipped:
		r.Skipped++
	case res.Record.Available == rdap.Available:
		r.Available++
	case res.Record.Available == rdap.Registered:
		r.Registered++
	default:
		r.Unknown++
	}
}
