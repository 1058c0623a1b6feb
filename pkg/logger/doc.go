// Package logger provides structured logging for the downloader.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output on stderr, keeping stdout free for progress display
// - Optional file output
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "iiifdl/pkg/logger"
//
//	// Initialize the global logger
//	err := logger.Initialize(logger.Options{
//	    Level: "info",
//	    File:  "",
//	})
//
//	// Use the global logger
//	logger.Info("run started")
//	logger.WithField("canvas", 12).Info("download complete")
//	logger.WithError(err).Error("transfer failed")
//
// Advanced Usage:
//
//	// Create a logger instance with fields
//	log := logger.GetLogger().
//	    WithField("component", "engine").
//	    WithField("output_dir", dir)
//
//	log.WithFields(map[string]interface{}{
//	    "file":     "canvas-002_Page_5.jpeg",
//	    "bytes":    1024000,
//	    "duration": time.Second * 5,
//	}).Info("download completed")
package logger
