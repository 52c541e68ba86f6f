// Copyright 2026 CleverData
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
	"fmt"
	"text/tabwriter"

	"github.com/cleverdata/tickcopy/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the local copy log",
}

var historyLimit int

var historyListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List recorded copies, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No copies recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSEQ\tDESTINATION\tBYTES\tCOPIED AT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", e.RunID[:8], e.Seq, e.Destination, e.Bytes, e.CopiedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var resetRun string

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the copy log",
	Long:  `Clears the local SQLite copy log. Copy counters are never read from the log, so this does not change how new copies are named.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if resetRun != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Clearing history for run: %s\n", resetRun)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "WARNING: Clearing ENTIRE copy history.")
		}

		n, err := store.Reset(cmd.Context(), resetRun)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "History reset complete (%d entries removed).\n", n)
		return nil
	},
}

func openHistory() (*history.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled (history.enabled=false)")
	}
	return history.Open(cfg.History.DBPath)
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
	historyResetCmd.Flags().StringVarP(&resetRun, "run", "r", "", "Only clear entries recorded by this run ID")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyResetCmd)
	rootCmd.AddCommand(historyCmd)
}
