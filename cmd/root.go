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
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/osiloke/rdapwatch/checker"
	"github.com/osiloke/rdapwatch/history"
	"github.com/osiloke/rdapwatch/rdap"
)

var cfgFile string

// RootCmd is the base command for rdapwatch.
var RootCmd = &cobra.Command{
	Use:   "rdapwatch",
	Short: "check domain availability over RDAP and keep a lookup history",
	Long: `rdapwatch resolves the authoritative RDAP endpoint for a domain's TLD
from the IANA bootstrap registry, probes it for registration status and
records every result in a local history database.

Scan a base name across every covered TLD, check single domains, query the
recorded history, or watch a domain list on a schedule.`,
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./rdapwatch.yaml)")
	RootCmd.PersistentFlags().String("db", "rdapwatch.db", "history database path")
	RootCmd.PersistentFlags().String("bootstrap-url", rdap.DefaultBootstrapURL, "registry discovery map url")
	RootCmd.PersistentFlags().String("bootstrap-cache", "", "path for caching the bootstrap payload")
	RootCmd.PersistentFlags().Duration("bootstrap-cache-ttl", 24*time.Hour, "bootstrap cache freshness window")
	RootCmd.PersistentFlags().Duration("timeout", rdap.ProbeTimeout, "per probe timeout")
	RootCmd.PersistentFlags().Uint("workers", 10, "concurrent probes in a batch")
	RootCmd.PersistentFlags().Int("rate", 1, "requests per second budget per registry host")

	for _, flag := range []string{"db", "bootstrap-url", "bootstrap-cache", "bootstrap-cache-ttl", "timeout", "workers", "rate"} {
		viper.BindPFlag(flag, RootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rdapwatch")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("rdapwatch")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("using config file:", viper.ConfigFileUsed())
	}
}

func newLoader() *rdap.Loader {
	return &rdap.Loader{
		URL:       viper.GetString("bootstrap-url"),
		Timeout:   rdap.DefaultBootstrapTimeout,
		CachePath: viper.GetString("bootstrap-cache"),
		CacheTTL:  viper.GetDuration("bootstrap-cache-ttl"),
	}
}

func checkerOptions() checker.Options {
	opts := checker.DefaultOptions()
	opts.Workers = viper.GetUint("workers")
	opts.RatePerHost = viper.GetInt("rate")
	opts.Timeout = viper.GetDuration("timeout")
	return opts
}

func openHistory() (*history.Store, error) {
	return history.Open(viper.GetString("db"))
}

// signalContext returns a context cancelled on the first interrupt. A batch
// finishes its in-flight probes and reports how far it got.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	s := make(chan os.Signal, 1)
	signal.Notify(s, os.Interrupt)
	go func() {
		select {
		case <-s:
			fmt.Println("\nstopping after in-flight checks")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(s)
	}()
	return ctx, cancel
}
