package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osiloke/rdapwatch/checker"
)

var (
	scanTLDs  string
	scanDir   string
	scanFiles bool
)

// scanCmd checks a base name against many TLDs.
var scanCmd = &cobra.Command{
	Use:   "scan <name>",
	Short: "check a base name across top level domains",
	Long: `Check <name>.<tld> for every TLD in a list. The list comes from a
tlds.txt file or URL (IANA format, # comments) or defaults to every TLD the
bootstrap registry has an RDAP endpoint for.

Available and registered hits are appended to <name>_available.txt and
<name>_registered.txt as they arrive. Interrupting a scan keeps everything
checked so far and reports how many domains were completed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := args[0]
		ctx, cancel := signalContext()
		defer cancel()

		bootstrap, err := newLoader().Load(ctx)
		if err != nil {
			return err
		}

		var tlds []string
		if scanTLDs != "" {
			tlds, err = checker.LoadTLDs(scanTLDs)
			if err != nil {
				return err
			}
		} else {
			tlds = bootstrap.TLDs()
		}
		fmt.Printf("checking %s against %d TLDs\n", base, len(tlds))

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		var out *checker.OutFiles
		if scanFiles {
			out, err = checker.OpenOutFiles(scanDir, base)
			if err != nil {
				return err
			}
			defer out.Close()
		}

		chk := checker.New(bootstrap, checkerOptions())
		report, err := chk.Scan(ctx, base, tlds, store, out)
		if err != nil {
			return err
		}
		checker.PrintReport(report)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanTLDs, "tlds", "t", "", "tld list file or url (defaults to bootstrap coverage)")
	scanCmd.Flags().StringVarP(&scanDir, "dir", "d", ".", "directory for result files")
	scanCmd.Flags().BoolVar(&scanFiles, "files", true, "write <name>_available.txt and <name>_registered.txt")
}
