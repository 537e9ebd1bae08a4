package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/osiloke/rdapwatch/rdap"
)

// OutFiles appends scan outcomes to the per-base-name text files the old
// tool produced: <base>_available.txt and <base>_registered.txt. Open once
// per run and close on every exit path.
type OutFiles struct {
	avail *os.File
	reg   *os.File
}

// OpenOutFiles creates the pair of output files for a base name under dir.
func OpenOutFiles(dir, base string) (*OutFiles, error) {
	base = strings.Replace(base, ".", "_", -1)
	avail, err := os.Create(filepath.Join(dir, base+"_available.txt"))
	if err != nil {
		return nil, err
	}
	reg, err := os.Create(filepath.Join(dir, base+"_registered.txt"))
	if err != nil {
		avail.Close()
		return nil, err
	}
	o := &OutFiles{avail: avail, reg: reg}
	fmt.Fprintf(avail, "Available domains for: %s\n%s\n\n", base, strings.Repeat("=", 60))
	fmt.Fprintf(reg, "Registered domains for: %s\n%s\n\n", base, strings.Repeat("=", 60))
	return o, nil
}

// Add appends one result and flushes immediately, so an interrupted run
// keeps everything checked so far. Unknown and skipped outcomes are not
// written; they belong in the history log, not in the result lists.
func (o *OutFiles) Add(res Result) error {
	if o == nil {
		return nil
	}
	switch res.Record.Available {
	case rdap.Available:
		if _, err := fmt.Fprintf(o.avail, "%s\n", res.Domain); err != nil {
			return err
		}
		return o.avail.Sync()
	case rdap.Registered:
		rec := res.Record
		if _, err := fmt.Fprintf(o.reg, "%s - Registered on %s, expires %s\n",
			res.Domain, orNA(rec.RegisteredDate), orNA(rec.ExpirationDate)); err != nil {
			return err
		}
		return o.reg.Sync()
	}
	return nil
}

// Close closes both files, reporting the first error.
func (o *OutFiles) Close() error {
	if o == nil {
		return nil
	}
	err := o.avail.Close()
	if cerr := o.reg.Close(); err == nil {
		err = cerr
	}
	return err
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
