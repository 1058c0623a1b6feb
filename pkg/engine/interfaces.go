package engine

import (
	"context"

	"iiifdl/pkg/iiif"
	"iiifdl/pkg/tracker"
	"iiifdl/pkg/transfer"
)

// CanvasFetcher defines the transfer operation the engine drives
type CanvasFetcher interface {
	Fetch(ctx context.Context, canvas iiif.Canvas, targetPath string) (transfer.Result, error)
}

// CompletionTracker defines the resume bookkeeping the engine consults
type CompletionTracker interface {
	Detect(index int, label string) tracker.Detection
	MigrateIfNeeded(index int, label string) (filename string, migrated bool, err error)
	RecordComplete(index int, filename string, sizeBytes int64) error
	Reset() error
	Dir() string
}
