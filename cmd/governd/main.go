// Package main implements the governd daemon and its CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML config file; empty uses the default path.
	configPath string
	// serverURL is the base URL used by client commands.
	serverURL string
	// version information (set via ldflags during build)
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "governd",
	Short: "Governed interaction core for multi-agent assistants",
	Long: `governd runs the governed interaction core: a per-user interaction
channel, a bounded meeting lifecycle, and a human-validated memory gate in
front of durable storage.`,
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/governd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "governd server URL")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}
