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

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const serviceName = "TickCopyAgent"

// program implements the service.Interface
type program struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, s)
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

func (p *program) run(ctx context.Context, s service.Service) {
	defer close(p.done)
	if err := RunAgent(ctx); err != nil {
		if logger, lerr := s.Logger(nil); lerr == nil {
			logger.Error(err)
		}
	}
}

func getService(configPath string) (service.Service, error) {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: "TickCopy File Duplication Agent",
		Description: "Periodically duplicates a source file into numbered copies.",
		Arguments:   args,
	}

	prg := &program{}
	return service.New(prg, svcConfig)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the TickCopy Agent as a system service",
	Run: func(cmd *cobra.Command, args []string) {
		// Find current config file to pass to the service
		configPath := viper.ConfigFileUsed()
		if configPath == "" {
			fmt.Println("Error: No config file found. Please run 'tickcopy setup' first.")
			return
		}

		s, err := getService(configPath)
		if err != nil {
			fmt.Printf("Setup failed: %v\n", err)
			return
		}

		// Check if already installed
		status, err := s.Status()
		if err == nil {
			fmt.Println("TickCopy Agent is already installed.")
			if status == service.StatusRunning {
				fmt.Println("Service is currently RUNNING.")
			} else {
				fmt.Println("Service is currently STOPPED.")
			}
			fmt.Println("Use 'tickcopy restart' to apply config changes, or 'tickcopy uninstall' to remove it.")
			return
		}

		fmt.Println("Installing TickCopy Agent Service...")
		if err := s.Install(); err != nil {
			fmt.Printf("Failed to install: %v\n", err)
			fmt.Println("Hint: Ensure you are running as Administrator.")
			return
		}
		fmt.Println("Service installed successfully.")

		fmt.Println("Starting service...")
		if err := s.Start(); err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			return
		}
		fmt.Println("Service started.")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the TickCopy Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := getService("")
		if err != nil {
			fmt.Println(err)
			return
		}

		// Ignore stop errors, it might not be running
		_ = s.Stop()

		if err := s.Uninstall(); err != nil {
			fmt.Printf("Failed to uninstall: %v\n", err)
			return
		}
		fmt.Println("Service uninstalled.")
	},
}

// controlCmd builds a command that forwards one action to the service manager.
func controlCmd(action, verb, progress, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s the TickCopy Agent Service", verb),
		Run: func(cmd *cobra.Command, args []string) {
			s, err := getService(viper.ConfigFileUsed())
			if err != nil {
				fmt.Println(err)
				return
			}

			fmt.Printf("%s TickCopy Agent Service...\n", progress)
			if err := service.Control(s, action); err != nil {
				fmt.Printf("Failed to %s: %v\n", action, err)
				return
			}
			fmt.Printf("Service %s.\n", done)
		},
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the TickCopy Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := getService("")
		if err != nil {
			fmt.Println(err)
			return
		}

		status, err := s.Status()
		if err != nil {
			fmt.Printf("Could not get status: %v\n", err)
			return
		}
		fmt.Printf("TickCopy Agent Service Status: %s\n", statusString(status))
	},
}

func statusString(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "Running"
	case service.StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(controlCmd("start", "Start", "Starting", "started"))
	rootCmd.AddCommand(controlCmd("stop", "Stop", "Stopping", "stopped"))
	rootCmd.AddCommand(controlCmd("restart", "Restart", "Restarting", "restarted"))
	rootCmd.AddCommand(statusCmd)
}
