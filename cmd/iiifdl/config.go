package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"iiifdl/pkg/config"
	"iiifdl/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage iiifdl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IIIFDL_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'iiifdl.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

// pathCmd represents the config path command
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file in use",
	Long: `Show the configuration file that would be loaded, either the one
given with --config or the first file found in the default locations.`,
	Run: runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
	configCmd.AddCommand(pathCmd)
}

// defaultConfigPaths lists the locations searched when --config is not given,
// in priority order.
func defaultConfigPaths() []string {
	return []string{
		"iiifdl.yaml",
		"iiifdl.yml",
		".iiifdl.yaml",
		".iiifdl.yml",
		filepath.Join(os.Getenv("HOME"), ".iiifdl.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "iiifdl", "config.yaml"),
	}
}

// findConfigFile returns the first existing default config file, or "".
func findConfigFile() string {
	for _, path := range defaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func runConfigInit(cmd *cobra.Command, args []string) {
	// Determine config file path
	configPath := configFile
	if configPath == "" {
		configPath = "iiifdl.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	// Create example configuration
	exampleConfig := `# iiifdl configuration file
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with IIIFDL_
# For example: IIIFDL_OUTPUT_DIR, IIIFDL_RATE_MODE

# Download configuration
download:
  # Image API size request: "full", "max", or a pixel width like "2000"
  size: "full"

  # Response header timeout per request
  timeout: 30s

  # Additional attempts per image after the first
  max_retries: 3

  # Skip canvases already recorded as complete
  resume: true

  # Write metadata.txt next to the images
  write_metadata: false

  # Streaming read buffer size in bytes
  chunk_size: 32768

  # User agent sent with every request
  user_agent: "iiifdl/1.0"

# Request pacing
rate_limit:
  # Pacing mode: adaptive, fixed-rpm, or fixed-delay
  mode: "adaptive"

  # Adaptive mode: starting delay between requests
  base_delay: 500ms

  # Adaptive mode: ceiling the delay never exceeds
  max_delay: 30s

  # Adaptive mode: delay multiplier after a throttling response
  throttle_factor: 2.0

  # Adaptive mode: delay multiplier after a success (decays toward base)
  decay_factor: 0.9

  # Fixed-rpm mode: requests per minute
  requests_per_minute: 120

  # Fixed-delay mode: constant delay between requests
  fixed_delay: 500ms

# Size estimation when servers withhold Content-Length
estimate:
  jpeg_bytes_per_pixel: 0.45
  png_bytes_per_pixel: 1.8
  tiff_bytes_per_pixel: 3.0
  min_bytes: 1024

# Output settings
output:
  # Output directory; empty derives one from the manifest source name
  directory: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error, disabled
  level: "info"

  # Log file path (optional); empty logs to stderr
  file: ""

# Terminal presentation
ui:
  # Full-screen terminal interface
  tui: false

  # Only failures, warnings, and the final summary
  quiet: false

  # Disable colored output
  no_color: false

  # Desktop notification when the run ends
  notifications: false

# Optional prometheus endpoint, e.g. ":9090"
metrics:
  addr: ""
`

	// Write configuration file
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Adjust the options you care about")
	fmt.Println("2. Run 'iiifdl config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'iiifdl download -s <manifest-url>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Convert to YAML for display
	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	fmt.Print(string(data))

	// Show configuration sources
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IIIFDL_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
}

func runConfigPath(cmd *cobra.Command, args []string) {
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			abs = configFile
		}
		if _, err := os.Stat(configFile); err != nil {
			ui.PrintWarning("Configured file does not exist", abs)
			os.Exit(1)
		}
		fmt.Println(abs)
		return
	}

	if found := findConfigFile(); found != "" {
		abs, err := filepath.Abs(found)
		if err != nil {
			abs = found
		}
		fmt.Println(abs)
		return
	}

	ui.PrintWarning("No configuration file found")
	fmt.Println("\nLocations searched:")
	for _, path := range defaultConfigPaths() {
		fmt.Printf("  %s\n", path)
	}
	fmt.Println("\nCreate one with 'iiifdl config init'")
	os.Exit(1)
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	// Check if config file is specified
	if configFile == "" {
		configFile = findConfigFile()
		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	// Try to load and validate configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	// Perform additional checks beyond structural validation
	warnings := []string{}
	errors := []string{}

	if cfg.Output.Directory != "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create output directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if cfg.RateLimit.Mode == config.RateModeFixedRPM && cfg.RateLimit.RequestsPerMinute > 600 {
		warnings = append(warnings, "more than 600 requests per minute is likely to trip server throttling")
	}
	if cfg.Download.MaxRetries > 10 {
		warnings = append(warnings, "more than 10 retries per image rarely helps")
	}

	// Display results
	if len(errors) > 0 {
		ui.PrintError("Configuration has errors")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	// Show summary
	fmt.Println("\nConfiguration summary:")
	if cfg.Output.Directory != "" {
		fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	} else {
		fmt.Println("  Output directory: (derived from the manifest source)")
	}
	fmt.Printf("  Size request: %s\n", cfg.Download.Size)
	fmt.Printf("  Rate mode: %s\n", cfg.RateLimit.Mode)
	fmt.Printf("  Max retries: %d\n", cfg.Download.MaxRetries)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
