// Copyright © 2019 Osiloke Emoekpere <me@osiloke.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/osiloke/rdapwatch/checker"
	"github.com/osiloke/rdapwatch/history"
	"github.com/osiloke/rdapwatch/metrics"
)

var (
	watchURL, watchKey, watchName, watchFile, watchSchedule, watchMetricsAddr string
)

// watchCmd re-checks a list of domains, optionally on a cron schedule.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "re-check a list of domains, optionally on a schedule",
	Long: `Re-check the registration status of a fixed list of domains and
record the results. The list comes from a local file (one domain per line)
or from a dostow store given --url and --key.

With --schedule the checks repeat at the given cron spec until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchFile == "" && (watchURL == "" || watchKey == "") {
			return errors.New("either --file or --url and --key are required")
		}

		if watchMetricsAddr != "" {
			go func() {
				if err := metrics.Serve(watchMetricsAddr); err != nil {
					log.Println("metrics server:", err)
				}
			}()
		}

		ctx, cancel := signalContext()
		defer cancel()

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if watchSchedule != "" {
			c := cron.New()
			if err := c.AddFunc(watchSchedule, func() {
				if err := runWatch(ctx, store); err != nil {
					log.Println(err)
				}
			}); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()
			println("running")
			<-ctx.Done()
			println("stopping")
			return nil
		}
		return runWatch(ctx, store)
	},
}

func runWatch(ctx context.Context, store *history.Store) error {
	bootstrap, err := newLoader().Load(ctx)
	if err != nil {
		return err
	}
	opts := checkerOptions()
	opts.WhoisFallback = true
	chk := checker.New(bootstrap, opts)

	if watchFile != "" {
		domains, err := checker.LoadDomains(watchFile)
		if err != nil {
			return err
		}
		report, err := chk.CheckAll(ctx, domains, store)
		if err != nil {
			return err
		}
		checker.PrintReport(report)
		return nil
	}
	return chk.WatchDostow(ctx, watchURL, watchKey, watchName, store)
}

func init() {
	RootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchURL, "url", "u", "", "dostow api url")
	watchCmd.Flags().StringVarP(&watchKey, "key", "k", "", "dostow api key")
	watchCmd.Flags().StringVarP(&watchName, "name", "n", "domains", "dostow store holding the domain list")
	watchCmd.Flags().StringVarP(&watchFile, "file", "f", "", "local domain list, one per line")
	watchCmd.Flags().StringVarP(&watchSchedule, "schedule", "s", "", "cron spec to repeat the checks")
	watchCmd.Flags().StringVarP(&watchMetricsAddr, "metrics-addr", "m", "", "listen address for prometheus metrics")
}
