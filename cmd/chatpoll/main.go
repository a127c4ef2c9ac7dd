// Package main is the entry point for the chatpoll CLI.
//
// chatpoll can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	chatpoll serve -c config.yaml    # Start the watcher
//	chatpoll validate -c config.yaml # Validate configuration
//	chatpoll version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatpoll",
	Short: "A chat relay with a status-polling watcher",
	Long: `chatpoll relays chat messages to a remote serverless function and
watches the workload's status endpoint, keeping an append-only history of
distinct status observations.

Polling begins when the first chat message is submitted and can also be
controlled explicitly through the HTTP API.

Quick start:
  1. Create a config file (chatpoll.yaml)
  2. Run: chatpoll serve -c chatpoll.yaml
  3. Talk to the API at http://localhost:8080/api/

Example config:
  port: 8080
  poll_interval: 2s
  status_url: ${STATUS_API_URL:-https://api.example.com}
  chat_url: ${CHAT_API_URL:-https://api.example.com}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this chatpoll binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chatpoll %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
