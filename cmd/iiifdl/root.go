package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"iiifdl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iiifdl",
	Short: "Download image sequences from IIIF manifests",
	Long: `iiifdl downloads every image a IIIF Presentation manifest references,
in reading order, straight from the institution's image service.

Features:
  - Presentation API v2.1 and v3.0 manifests, from a URL or a local file
  - Adaptive rate limiting that backs off when the server pushes back
  - Resumable runs: finished pages are recorded and skipped next time
  - Automatic retry with exponential backoff and jitter
  - Image service capability probing with graceful fallbacks
  - Plain progress output or a full-screen terminal interface

Start with 'iiifdl download --help', or pass a manifest URL directly.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || quiet || !ui.IsTerminal() {
			ui.EnableColors(false)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/iiifdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when the run ends")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only failures, warnings, and the final summary")

	// Version template
	rootCmd.SetVersionTemplate(`iiifdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
