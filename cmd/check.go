package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osiloke/rdapwatch/checker"
	"github.com/osiloke/rdapwatch/rdap"
)

var (
	checkJSON  bool
	checkWhois bool
)

// checkCmd checks one or more fully qualified domains.
var checkCmd = &cobra.Command{
	Use:   "check <domain> [domain...]",
	Short: "check registration status of one or more domains",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		bootstrap, err := newLoader().Load(ctx)
		if err != nil {
			return err
		}
		opts := checkerOptions()
		opts.WhoisFallback = checkWhois
		chk := checker.New(bootstrap, opts)

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		failed := false
		for _, domain := range args {
			res, err := chk.Check(ctx, domain)
			switch {
			case errors.Is(err, rdap.ErrNoCoverage):
				fmt.Printf("? %s - no RDAP coverage for this TLD (try --whois)\n", domain)
				continue
			case errors.Is(err, rdap.ErrInvalidDomain):
				fmt.Fprintf(os.Stderr, "? %s - %v\n", domain, err)
				failed = true
				continue
			case err != nil:
				return err
			}

			if serr := store.SaveLookup(res.Domain, time.Now(), res.Record); serr != nil {
				fmt.Fprintln(os.Stderr, "could not save lookup:", serr)
			}

			if checkJSON {
				printJSON(res)
				continue
			}
			printResult(res)
			if res.Record.Available == rdap.Unknown {
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
		return nil
	},
}

func printResult(res checker.Result) {
	rec := res.Record
	switch rec.Available {
	case rdap.Available:
		fmt.Printf("✓ %s - AVAILABLE\n", res.Domain)
	case rdap.Registered:
		fmt.Printf("✗ %s - registered", res.Domain)
		if rec.Registrar != "" {
			fmt.Printf(" by %s", rec.Registrar)
		}
		if rec.ExpirationDate != "" {
			fmt.Printf(", expires %s", rec.ExpirationDate)
		}
		if rec.Err != "" {
			fmt.Printf(" (%s)", rec.Err)
		}
		fmt.Printf(" [%s]\n", res.Source)
	default:
		fmt.Printf("? %s - unknown: %s\n", res.Domain, rec.Err)
	}
}

func init() {
	RootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVarP(&checkJSON, "json", "j", false, "print results as json")
	checkCmd.Flags().BoolVarP(&checkWhois, "whois", "w", false, "fall back to whois when a tld has no rdap coverage")
}
