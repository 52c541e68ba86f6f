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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cleverdata/tickcopy/internal/core"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunAgent is the entry point for the long-running process. It returns nil once
// the trigger stops, so a foreground run exits 0; under a service manager the
// service stays up idle until stopped.
func RunAgent(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if service.Interactive() {
		fmt.Println("TickCopy Agent Starting...")
	} else {
		log.Info().Msg("TickCopy Agent Starting as Service...")
	}

	agent, err := core.New(cfg, log, core.Options{})
	if err != nil {
		return err
	}
	defer agent.Close()

	if err := agent.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Agent stopped on copy fault")
		return err
	}
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Long: `Runs the configured trigger directly. Usually invoked by the service manager.

Triggers:
  delay  copy every --interval, stopping after --max-ticks copies (default)
  daily  copy once a day at --at (HH:MM)
  watch  copy whenever the source file changes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if service.Interactive() {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return RunAgent(ctx)
		}

		// When running as a service, we MUST call s.Run() to check in with the service manager
		s, err := getService(viper.ConfigFileUsed())
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}
		return s.Run()
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Copy the source file a single time and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		agent, err := core.New(cfg, log, core.Options{Out: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		defer agent.Close()

		_, err = agent.CopyOnce(cmd.Context())
		return err
	},
}

func init() {
	runCmd.Flags().String("mode", "", "Trigger mode: delay, daily or watch")
	runCmd.Flags().Duration("interval", 0, "Delay between copies (delay mode)")
	runCmd.Flags().Int("max-ticks", 0, "Number of copies before the trigger stops")
	runCmd.Flags().String("at", "", "Time of day HH:MM (daily mode)")
	viper.BindPFlag("trigger.mode", runCmd.Flags().Lookup("mode"))
	viper.BindPFlag("trigger.interval", runCmd.Flags().Lookup("interval"))
	viper.BindPFlag("trigger.max_ticks", runCmd.Flags().Lookup("max-ticks"))
	viper.BindPFlag("trigger.daily_at", runCmd.Flags().Lookup("at"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
}
