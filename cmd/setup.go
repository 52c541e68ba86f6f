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
	"path/filepath"
	"strings"
	"time"

	"github.com/cleverdata/tickcopy/internal/config"
	"github.com/cleverdata/tickcopy/internal/notify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write the source, destination and trigger settings to the config file",
	Long: `Stores what to copy and when in config.yaml.

Copies are named <base>.<counter> inside the destination directory, starting at
--start-counter. The counter is not persisted, so a restarted agent starts again
from the configured value and overwrites earlier copies.`,
	Example: `  tickcopy setup --source data.txt --dest test/ --mode delay --interval 1m --max-ticks 3
  tickcopy setup --source /srv/report.csv --dest /backup --mode daily --at 19:58`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		dest, _ := cmd.Flags().GetString("dest")
		base, _ := cmd.Flags().GetString("base")
		mode, _ := cmd.Flags().GetString("mode")
		interval, _ := cmd.Flags().GetDuration("interval")
		maxTicks, _ := cmd.Flags().GetInt("max-ticks")
		at, _ := cmd.Flags().GetString("at")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		key, _ := cmd.Flags().GetString("key")
		force, _ := cmd.Flags().GetBool("force")

		if source == "" || dest == "" {
			return fmt.Errorf("--source and --dest are required")
		}

		absSource, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("invalid source path: %w", err)
		}
		absDest, err := filepath.Abs(dest)
		if err != nil {
			return fmt.Errorf("invalid destination path: %w", err)
		}

		v := viper.GetViper()
		v.Set("source.path", absSource)
		v.Set("source.dest_dir", absDest)
		v.Set("source.base_name", base)
		v.Set("trigger.mode", strings.ToLower(mode))
		v.Set("trigger.interval", interval.String())
		v.Set("trigger.max_ticks", maxTicks)
		v.Set("trigger.daily_at", at)
		v.Set("notify.endpoint", strings.TrimRight(endpoint, "/"))
		v.Set("notify.key", key)

		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		if cfg.Notify.Endpoint != "" && !force {
			fmt.Printf("Verifying connection to %s...\n", cfg.Notify.Endpoint)
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if err := notify.New(cfg.Notify, zerolog.Nop()).Check(ctx); err != nil {
				return fmt.Errorf("%w (use --force to save anyway)", err)
			}
			fmt.Println("Connection Verified!")
		}

		if v.ConfigFileUsed() != "" {
			if err := v.WriteConfig(); err != nil {
				return fmt.Errorf("failed to update config: %w", err)
			}
		} else {
			// No config exists yet, create one next to the executable
			exePath, _ := os.Executable()
			targetDir := filepath.Dir(exePath)
			os.MkdirAll(targetDir, 0755)
			v.SetConfigFile(filepath.Join(targetDir, "config.yaml"))

			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
		}

		fmt.Printf("Saved %s\n", v.ConfigFileUsed())
		fmt.Printf("Copy: %s -> %s\n", cfg.Source.Path, filepath.Join(cfg.Source.DestDir, cfg.Source.BaseName+".<n>"))
		switch cfg.Trigger.Mode {
		case config.ModeDelay:
			fmt.Printf("Trigger: every %s, %d copies\n", cfg.Trigger.Interval, cfg.Trigger.MaxTicks)
		case config.ModeDaily:
			fmt.Printf("Trigger: daily at %s (%s)\n", cfg.Trigger.DailyAt, cfg.Trigger.Timezone)
		case config.ModeWatch:
			fmt.Printf("Trigger: on change, settling %s\n", cfg.Trigger.SettlingDelay)
		}
		fmt.Println("\n>>> IMPORTANT: Run 'tickcopy restart' to apply these changes to the running service.")
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config file:  %s\n", viper.ConfigFileUsed())
		fmt.Fprintf(out, "source:       %s\n", cfg.Source.Path)
		fmt.Fprintf(out, "destination:  %s\n", filepath.Join(cfg.Source.DestDir, cfg.Source.BaseName+".<n>"))
		fmt.Fprintf(out, "start:        %d\n", cfg.Source.StartCounter)
		fmt.Fprintf(out, "trigger:      %s\n", cfg.Trigger.Mode)
		fmt.Fprintf(out, "history:      %t (%s)\n", cfg.History.Enabled, cfg.History.DBPath)
		if cfg.Notify.Endpoint != "" {
			fmt.Fprintf(out, "notify:       %s\n", cfg.Notify.Endpoint)
		}
		return nil
	},
}

func init() {
	setupCmd.Flags().String("source", "", "File to duplicate")
	setupCmd.Flags().String("dest", "", "Directory receiving the copies")
	setupCmd.Flags().String("base", "", "Copy filename prefix (default: source file name)")
	setupCmd.Flags().String("mode", config.ModeDelay, "Trigger mode: delay, daily or watch")
	setupCmd.Flags().Duration("interval", time.Minute, "Delay between copies")
	setupCmd.Flags().Int("max-ticks", 3, "Number of copies before the trigger stops")
	setupCmd.Flags().String("at", "19:58", "Time of day HH:MM for the daily trigger")
	setupCmd.Flags().String("endpoint", "", "Webhook endpoint notified after every copy")
	setupCmd.Flags().String("key", "", "Webhook API key (Secret)")
	setupCmd.Flags().Bool("force", false, "Skip connection verification")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(showCmd)
}
