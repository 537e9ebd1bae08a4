package checker

import (
	"context"

	"github.com/Jeffail/gabs"
	"github.com/cstockton/go-conv"
	dostow "github.com/osiloke/dostow-contrib/store"
)

// WatchDostow re-checks every domain listed in a dostow store and writes the
// availability records back, one row per check plus a run summary. The local
// sink still receives every record so history queries keep working.
func (c *Checker) WatchDostow(ctx context.Context, apiurl, apikey, name string, sink Sink) error {
	store := dostow.NewStore(apiurl, apikey)
	r, err := store.All(100, 0, name)
	if err != nil {
		log.Error("could not list domains", "err", err.Error())
		return err
	}
	doc, err := gabs.ParseJSON(r.(dostow.DostowRows).JSON())
	if err != nil {
		return err
	}
	total, _ := conv.Int64(doc.Path("total_count").Data())
	if total == 0 {
		log.Info("no domains found", "store", name)
		return nil
	}
	rows, _ := doc.S("data").Children()

	ids := map[string]string{}
	var domains []string
	for _, row := range rows {
		domain, err := conv.String(row.Path("domain").Data())
		if err != nil || domain == "" {
			continue
		}
		id, _ := conv.String(row.Path("id").Data())
		ids[domain] = id
		domains = append(domains, domain)
	}

	report, err := c.CheckAll(ctx, domains, sink)
	if err != nil {
		return err
	}

	for _, res := range report.Results {
		rec := res.Record
		key, err := store.Save("lookups", map[string]interface{}{
			"domain":         ids[res.Domain],
			"name":           res.Domain,
			"outcome":        res.Outcome(),
			"registeredDate": rec.RegisteredDate,
			"expirationDate": rec.ExpirationDate,
			"lastChanged":    rec.LastChanged,
			"registrar":      rec.Registrar,
			"statuses":       rec.Statuses,
			"error":          rec.Err,
		})
		if err != nil {
			log.Error("unable to save lookup", "domain", res.Domain, "err", err.Error())
			continue
		}
		log.Debug("saved lookup", "domain", res.Domain, "key", key)
	}

	summary := map[string]interface{}{
		"total":      report.Total,
		"completed":  report.Completed,
		"available":  report.Available,
		"registered": report.Registered,
		"unknown":    report.Unknown,
		"skipped":    report.Skipped,
	}
	if expiring := report.Expiring(); len(expiring) > 0 {
		rows := make([]interface{}, 0, len(expiring))
		for _, e := range expiring {
			rows = append(rows, map[string]interface{}{
				"domain":    e.Domain,
				"registrar": e.Registrar,
				"expires":   e.Expires,
				"days":      e.Days,
			})
		}
		summary["expiringSoon"] = rows
	}
	key, err := store.Save("checksummary", summary)
	if err != nil {
		log.Warn("unable to save summary", "err", err.Error())
		return nil
	}
	log.Info("saved summary", "key", key)
	return nil
}
