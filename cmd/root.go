package cmd

import (
	"fmt"
	"os"

	"github.com/arloq/docchat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	apiURL    string
	wsURL     string
	authToken string
	projectID string
	cacheMode string
	cacheDir  string
	redisAddr string
	version   string = "dev"
	commit    string = "unknown"
	date      string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your document-intelligence agents",
	Long: `A CLI client for document-intelligence chat sessions.

Conversations stream from the agent runtime and are reconstructed
locally: tool invocations, document citations, generated images, and
pipeline stages all render as they arrive.

Features:
  • Interactive chat with live streaming output
  • Named, research, and voice agent modes
  • Session listing, renaming, and deletion
  • Persisted-history replay with tool activity restored
  • Local archive and export (JSONL, Markdown, YAML, JSON)

Quick Start:
  docchat chat                     # Start an interactive chat
  docchat sessions                 # List your sessions
  docchat show <session-id>        # Replay a session
  docchat export <session-id> --format md`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("DOCCHAT_API_URL", "http://localhost:8080"), "Agent runtime base URL")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws-url", envOr("DOCCHAT_WS_URL", ""), "Notification websocket URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", envOr("DOCCHAT_TOKEN", ""), "Bearer token for the agent runtime")
	rootCmd.PersistentFlags().StringVar(&projectID, "project", envOr("DOCCHAT_PROJECT", ""), "Project identifier")
	rootCmd.PersistentFlags().StringVar(&cacheMode, "cache", envOr("DOCCHAT_CACHE", "file"), "Transcript cache backend (file, redis, off)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Transcript cache directory (defaults to ~/.docchat/cache)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("DOCCHAT_REDIS_ADDR", "localhost:6379"), "Redis address for the redis cache backend")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
