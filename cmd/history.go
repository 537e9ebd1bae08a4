package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/osiloke/rdapwatch/history"
	"github.com/osiloke/rdapwatch/rdap"
)

var (
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "query recorded lookups",
}

var historyDomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "list every recorded domain with lookup counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			domains, err := store.Domains()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"domain", "lookups"})
			for _, d := range domains {
				table.Append([]string{d.Domain, fmt.Sprintf("%v", d.Count)})
			}
			table.Render()
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "full lookup history for one domain, most recent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			entries, err := store.History(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("no history for %s\n", args[0])
				return nil
			}
			for _, e := range entries {
				rec := e.Record
				switch rec.Available {
				case rdap.Available:
					fmt.Printf("%s  ✓ available\n", e.CheckedAt.Format("2006-01-02 15:04:05"))
				case rdap.Registered:
					fmt.Printf("%s  ✗ registered  registrar=%s registered=%s expires=%s\n",
						e.CheckedAt.Format("2006-01-02 15:04:05"), rec.Registrar, rec.RegisteredDate, rec.ExpirationDate)
				default:
					fmt.Printf("%s  ? unknown  %s\n", e.CheckedAt.Format("2006-01-02 15:04:05"), rec.Err)
				}
			}
			return nil
		})
	},
}

var historyAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "domains available at their latest check",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			entries, err := store.Available()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"domain", "checked"})
			for _, e := range entries {
				table.Append([]string{e.Domain, e.CheckedAt.Format("2006-01-02 15:04:05")})
			}
			table.Render()
			return nil
		})
	},
}

var historyExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "registered domains by soonest expiration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			entries, err := store.ExpiringSoon(historyLimit)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"domain", "expires", "registrar", "checked"})
			for _, e := range entries {
				table.Append([]string{
					e.Domain,
					e.Record.ExpirationDate,
					e.Record.Registrar,
					e.CheckedAt.Format("2006-01-02 15:04:05"),
				})
			}
			table.Render()
			return nil
		})
	},
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "most recent lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			entries, err := store.Recent(historyLimit)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"checked", "domain", "outcome", "registrar"})
			for _, e := range entries {
				table.Append([]string{
					e.CheckedAt.Format("2006-01-02 15:04:05"),
					e.Domain,
					string(e.Record.Available),
					e.Record.Registrar,
				})
			}
			table.Render()
			return nil
		})
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(store *history.Store) error {
			stats, err := store.Summary()
			if err != nil {
				return err
			}
			fmt.Printf("total lookups:  %d\n", stats.TotalLookups)
			fmt.Printf("unique domains: %d\n", stats.UniqueDomains)
			fmt.Printf("available:      %d\n", stats.Available)
			fmt.Printf("registered:     %d\n", stats.Registered)
			fmt.Printf("unknown:        %d\n", stats.Unknown)
			if !stats.First.IsZero() {
				fmt.Printf("first lookup:   %s\n", stats.First.Format("2006-01-02 15:04:05"))
				fmt.Printf("last lookup:    %s\n", stats.Last.Format("2006-01-02 15:04:05"))
			}
			return nil
		})
	},
}

func withHistory(fn func(*history.Store) error) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyDomainsCmd, historyShowCmd, historyAvailableCmd,
		historyExpiringCmd, historyRecentCmd, historyStatsCmd)

	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "l", 50, "max rows to show")
}
