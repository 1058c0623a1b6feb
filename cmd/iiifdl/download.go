package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"iiifdl/internal/run"
	"iiifdl/pkg/config"
	"iiifdl/pkg/engine"
	"iiifdl/pkg/iiif"
	"iiifdl/pkg/logger"
	"iiifdl/pkg/metadata"
	"iiifdl/pkg/metrics"
	"iiifdl/pkg/ratelimit"
	"iiifdl/pkg/tracker"
	"iiifdl/pkg/transfer"
	"iiifdl/pkg/ui"
	"iiifdl/pkg/ui/tui"
)

var (
	// Download command flags
	sourceArg      string
	outputDir      string
	sizeSpec       string
	canvasIndex    int
	resumeRun      bool
	writeMetadata  bool
	maxRetries     int
	requestTimeout time.Duration
	rateLimitRPM   int
	noAdaptiveRate bool
	requestDelay   time.Duration
	useTUI         bool
	metricsAddr    string
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download all images referenced by a IIIF manifest",
	Long: `Download every image a IIIF Presentation manifest references, in
manifest order, into one flat output directory.

The manifest may be a URL or a local file and may follow Presentation
API v2.1 or v3.0. Finished pages are recorded in a ledger inside the
output directory; with --resume (the default) a rerun picks up where
the last one stopped.`,
	Example: `  # Download a manuscript at full resolution
  iiifdl download -s https://example.org/iiif/ms-1234/manifest

  # Limit width to 2000px and write metadata.txt alongside the images
  iiifdl download -s https://example.org/iiif/ms-1234/manifest --size 2000 --metadata

  # Fetch one canvas again, ignoring the resume ledger for it
  iiifdl download -s https://example.org/iiif/ms-1234/manifest --canvas 17 --resume=false

  # Be gentle with a fragile server
  iiifdl download -s https://example.org/iiif/ms-1234/manifest --request-delay 2s

  # Full-screen progress view
  iiifdl download -s https://example.org/iiif/ms-1234/manifest --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runDownload(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	// Local flags for download command
	downloadCmd.Flags().StringVarP(&sourceArg, "source", "s", "", "manifest URL or local file path (required)")
	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: derived from the source name)")
	downloadCmd.Flags().StringVar(&sizeSpec, "size", "", `image size request: "full", "max", or a pixel width`)
	downloadCmd.Flags().IntVar(&canvasIndex, "canvas", 0, "download a single canvas by its 1-based position")
	downloadCmd.Flags().BoolVar(&resumeRun, "resume", true, "skip canvases already recorded as complete")
	downloadCmd.Flags().BoolVar(&writeMetadata, "metadata", false, "write metadata.txt next to the images")
	downloadCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "additional attempts per image")
	downloadCmd.Flags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "response header timeout per request")
	downloadCmd.Flags().IntVar(&rateLimitRPM, "rate-limit", 0, "fixed requests per minute instead of adaptive pacing")
	downloadCmd.Flags().BoolVar(&noAdaptiveRate, "no-adaptive-rate", false, "fixed-rate pacing instead of adaptive backoff")
	downloadCmd.Flags().DurationVar(&requestDelay, "request-delay", 0, "fixed delay between requests")
	downloadCmd.Flags().BoolVar(&useTUI, "tui", false, "full-screen terminal interface with live progress")
	downloadCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address during the run")

	// Also add these flags to root command so a bare manifest URL works
	rootCmd.Flags().StringVarP(&sourceArg, "source", "s", "", "manifest URL or local file path")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: derived from the source name)")
	rootCmd.Flags().StringVar(&sizeSpec, "size", "", `image size request: "full", "max", or a pixel width`)
	rootCmd.Flags().IntVar(&canvasIndex, "canvas", 0, "download a single canvas by its 1-based position")
	rootCmd.Flags().BoolVar(&resumeRun, "resume", true, "skip canvases already recorded as complete")
	rootCmd.Flags().BoolVar(&writeMetadata, "metadata", false, "write metadata.txt next to the images")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "full-screen terminal interface with live progress")
}

func runDownload(cmd *cobra.Command, args []string) {
	if sourceArg == "" && len(args) == 1 {
		sourceArg = strings.TrimSpace(args[0])
	}
	if sourceArg == "" {
		ui.PrintError("No manifest source", "pass --source or a manifest URL argument")
		os.Exit(1)
	}
	if canvasIndex < 0 {
		ui.PrintError("Invalid canvas index", fmt.Sprintf("%d is not a 1-based position", canvasIndex))
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(configFile, buildDownloadFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	fullScreen := cfg.UI.TUI && ui.IsTerminal()

	// Initialize logger. The full-screen interface owns the terminal, so
	// console logging turns off unless a log file is configured.
	logOpts := logger.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		NoColor: cfg.UI.NoColor,
		Quiet:   cfg.UI.Quiet,
	}
	if fullScreen && logOpts.File == "" {
		logOpts.Level = "disabled"
	}
	if err := logger.Initialize(logOpts); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	if cfg.UI.NoColor {
		ui.EnableColors(false)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Load and normalize the manifest
	client := iiif.NewClient(cfg.Download.Timeout, log)
	client.SetUserAgent(cfg.Download.UserAgent)
	client.SetMaxRetries(cfg.Download.MaxRetries)

	if !fullScreen && !cfg.UI.Quiet {
		ui.PrintInfo("Manifest", sourceArg)
	}

	manifest, err := client.LoadManifest(ctx, sourceArg)
	if err != nil {
		log.WithError(err).WithField("source", sourceArg).Error("manifest load failed")
		ui.PrintError("Cannot load manifest", err.Error())
		os.Exit(1)
	}
	log.WithFields(map[string]interface{}{
		"label":    manifest.Label,
		"version":  manifest.Version,
		"canvases": manifest.CanvasCount(),
	}).Info("manifest loaded")

	dir := resolveOutputDir(cfg.Output.Directory, sourceArg)
	if !fullScreen && !cfg.UI.Quiet {
		ui.PrintInfo("Output directory", dir)
	}

	// Build the collaborators
	limiter := ratelimit.New(ratelimit.Config{
		Mode:              ratelimit.Mode(cfg.RateLimit.Mode),
		BaseDelay:         cfg.RateLimit.BaseDelay,
		MaxDelay:          cfg.RateLimit.MaxDelay,
		ThrottleFactor:    cfg.RateLimit.ThrottleFactor,
		DecayFactor:       cfg.RateLimit.DecayFactor,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		FixedDelay:        cfg.RateLimit.FixedDelay,
	})

	track, err := tracker.New(dir, log)
	if err != nil {
		log.WithError(err).Error("tracker setup failed")
		ui.PrintError("Cannot prepare output directory", err.Error())
		os.Exit(1)
	}

	transferrer := transfer.New(transfer.Config{
		Size:       cfg.Download.Size,
		ChunkSize:  cfg.Download.ChunkSize,
		MaxRetries: cfg.Download.MaxRetries,
		Timeout:    cfg.Download.Timeout,
		Headers: map[string]string{
			"User-Agent": cfg.Download.UserAgent,
			"Accept":     "image/*, */*;q=0.8",
		},
	}, limiter, log)
	transferrer.SetEstimator(transfer.Estimator{
		BytesPerPixel: map[string]float64{
			"jpeg": cfg.Estimate.JPEGBytesPerPixel,
			"jpg":  cfg.Estimate.JPEGBytesPerPixel,
			"png":  cfg.Estimate.PNGBytesPerPixel,
			"tiff": cfg.Estimate.TIFFBytesPerPixel,
			"tif":  cfg.Estimate.TIFFBytesPerPixel,
		},
		MinBytes: cfg.Estimate.MinBytes,
	})

	if cfg.Download.WriteMetadata {
		if err := metadata.FromManifest(manifest).Save(dir); err != nil {
			log.WithError(err).Warn("metadata write failed")
			ui.PrintWarning("Metadata not written", err.Error())
		} else if !fullScreen && !cfg.UI.Quiet {
			ui.PrintInfo("Metadata", filepath.Join(dir, metadata.Filename))
		}
	}

	eng := engine.New(manifest, transferrer, track, limiter, engine.Config{
		Resume: cfg.Download.Resume,
	}, log)
	transferrer.OnProgress(eng.ProgressFunc())

	m := metrics.New()
	eng.SetMetrics(m)

	var consumer run.Consumer
	if fullScreen {
		consumer = tui.New(manifest.Label, manifest.CanvasCount(), cancel)
	} else {
		consumer = ui.NewRenderer(cfg.UI.Quiet)
	}

	runner := run.New(run.Options{
		Engine:         eng,
		Consumer:       consumer,
		Canvas:         canvasIndex,
		MetricsAddr:    cfg.Metrics.Addr,
		MetricsHandler: m.Handler(),
		Logger:         log,
	})

	stats, runErr := runner.Run(ctx)

	if fullScreen {
		// The alt screen is gone; leave a plain record of the run.
		ui.WriteSummary(os.Stdout, stats)
	}

	if cfg.UI.Notifications {
		notifyEnd(manifest.Label, stats, runErr)
	}

	if runErr != nil {
		log.WithError(runErr).Error("run failed")
	}
	if code := run.ExitCode(stats, runErr); code != 0 {
		os.Exit(code)
	}
}

// buildDownloadFlags collects explicitly set flags for config merging.
// Flags may have been parsed on the root command when a manifest URL is
// passed without the download subcommand.
func buildDownloadFlags(cmd *cobra.Command) map[string]interface{} {
	changed := func(name string) bool {
		return cmd.Flags().Changed(name) || rootCmd.Flags().Changed(name)
	}

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if sizeSpec != "" {
		flags["size"] = sizeSpec
	}
	if changed("resume") {
		flags["resume"] = resumeRun
	}
	if changed("metadata") {
		flags["metadata"] = writeMetadata
	}
	if changed("max-retries") {
		flags["max-retries"] = maxRetries
	}
	if changed("timeout") {
		flags["timeout"] = requestTimeout
	}
	if changed("rate-limit") {
		flags["rate-limit"] = rateLimitRPM
	}
	if changed("no-adaptive-rate") {
		flags["no-adaptive-rate"] = noAdaptiveRate
	}
	if changed("request-delay") {
		flags["request-delay"] = requestDelay
	}
	if changed("tui") {
		flags["tui"] = useTUI
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}

	// Persistent flags
	if quiet {
		flags["quiet"] = true
	}
	if noColor {
		flags["no-color"] = true
	}
	if rootCmd.PersistentFlags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	return flags
}

// resolveOutputDir derives the output directory from the manifest
// source when none is configured: the last path segment without its
// extension, as the original file name of a local manifest or the
// trailing identifier of a manifest URL.
func resolveOutputDir(configured, source string) string {
	if configured != "" {
		return configured
	}

	trimmed := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		trimmed = u.Path
	}
	base := path.Base(trimmed)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "iiif_images"
	}
	return base
}

// notifyEnd sends the best-effort desktop notification
func notifyEnd(title string, stats engine.Statistics, err error) {
	if title == "" {
		title = "IIIF download"
	}
	notifier := ui.NewNotifier()
	if err != nil {
		notifier.Notify("iiifdl", fmt.Sprintf("%s: run aborted", title))
		return
	}
	notifier.Notify("iiifdl", fmt.Sprintf("%s: %d of %d pages complete",
		title, stats.Downloaded+stats.Skipped, stats.Total))
}

// Make download the default command when no subcommand is specified
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			// A bare argument is a manifest source
			runDownload(cmd, args)
			return nil
		}
		if sourceArg != "" {
			runDownload(cmd, nil)
			return nil
		}
		return cmd.Help()
	}

	// Set Args to allow arbitrary arguments
	rootCmd.Args = cobra.ArbitraryArgs
}

func isKnownCommand(arg string) bool {
	for _, c := range rootCmd.Commands() {
		if c.Name() == arg || c.HasAlias(arg) {
			return true
		}
	}
	return false
}
