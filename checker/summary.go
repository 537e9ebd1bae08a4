package checker

import (
	"fmt"
	"os"
	"time"

	"github.com/bradfitz/slice"
	"github.com/jinzhu/now"
	"github.com/olekukonko/tablewriter"

	"github.com/osiloke/rdapwatch/rdap"
)

// ExpiringDomain is a registered domain with a parseable expiration date.
type ExpiringDomain struct {
	Domain    string
	Registrar string
	Expires   time.Time
	Days      int
}

// Expiring extracts the registered results whose expiration date parses,
// soonest first.
func (r *ScanReport) Expiring() []ExpiringDomain {
	var out []ExpiringDomain
	for _, res := range r.Results {
		rec := res.Record
		if rec.Available != rdap.Registered || rec.ExpirationDate == "" {
			continue
		}
		expires, err := now.Parse(rec.ExpirationDate)
		if err != nil {
			log.Warn("could not parse expiration", "domain", res.Domain, "date", rec.ExpirationDate)
			continue
		}
		out = append(out, ExpiringDomain{
			Domain:    res.Domain,
			Registrar: rec.Registrar,
			Expires:   expires,
			Days:      int(time.Until(expires).Hours() / 24),
		})
	}
	slice.Sort(out[:], func(i, j int) bool {
		return out[i].Expires.Before(out[j].Expires)
	})
	return out
}

// PrintReport renders the batch summary tables to stdout.
func PrintReport(r *ScanReport) {
	println("Summary")
	println("========")
	fmt.Printf("checked %d of %d (available %d, registered %d, unknown %d, no coverage %d)\n",
		r.Completed, r.Total, r.Available, r.Registered, r.Unknown, r.Skipped)
	if r.Interrupted {
		fmt.Printf("stopped early after %d of %d domains\n", r.Completed, r.Total)
	}

	if r.Available > 0 {
		println("\nAvailable")
		println("========")
		for _, res := range r.Results {
			if !res.Skipped && res.Record.IsAvailable() {
				fmt.Printf("  %s\n", res.Domain)
			}
		}
	}

	expiring := r.Expiring()
	if len(expiring) > 0 {
		println("\nRegistered")
		println("========")
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"domain", "registrar", "expires", "days"})
		for _, e := range expiring {
			table.Append([]string{
				e.Domain,
				e.Registrar,
				e.Expires.Format("2006-01-02"),
				fmt.Sprintf("%v", e.Days),
			})
		}
		table.Render()
	}
}
