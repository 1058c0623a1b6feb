package tracker

import (
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	errs "iiifdl/pkg/errors"
	"iiifdl/pkg/logger"
)

// Detection classifies how a canvas is materialized on disk
type Detection int

const (
	// Missing means no file under any recognized scheme
	Missing Detection = iota
	// CurrentScheme means the file already carries the name the canvas
	// would be given today
	CurrentScheme
	// LegacyScheme means a plain indexed file exists for a canvas that
	// now has a label and should be migrated
	LegacyScheme
)

func (d Detection) String() string {
	switch d {
	case CurrentScheme:
		return "current"
	case LegacyScheme:
		return "legacy"
	default:
		return "missing"
	}
}

// Tracker maintains the resume ledger for one output directory: which
// canvases are already materialized, under which filename, and at what
// size. Lookups are O(1) on the canvas index. The tracker is driven by
// a single goroutine (the engine loop) and does no locking of its own.
type Tracker struct {
	fs       afero.Fs
	dir      string
	ledger   *ledger
	entries  map[int]Entry
	degraded bool
	logger   logger.Logger
}

// New creates a tracker over the real filesystem
func New(dir string, log logger.Logger) (*Tracker, error) {
	return NewWithFS(afero.NewOsFs(), dir, log)
}

// NewWithFS creates a tracker on the given filesystem. The output
// directory is created if needed; the ledger is loaded, stale entries
// (file gone) dropped, and pre-existing scheme-conforming files
// adopted.
func NewWithFS(fs afero.Fs, dir string, log logger.Logger) (*Tracker, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, "cannot create output directory "+dir)
	}

	t := &Tracker{
		fs:     fs,
		dir:    dir,
		ledger: newLedger(fs, dir),
		logger: log,
	}

	entries, err := t.ledger.Load()
	if err != nil {
		// A corrupt ledger is not fatal: disk presence is the source of
		// truth and the scan below rebuilds from it.
		log.WithError(err).Warn("resume ledger unreadable, rebuilding from directory contents")
		entries = make(map[int]Entry)
	}
	t.entries = entries

	t.pruneStale()
	if err := t.scanDir(); err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"dir":      dir,
		"complete": len(t.entries),
	}).Debug("tracker initialized")

	return t, nil
}

// pruneStale drops ledger entries whose file no longer exists; those
// canvases must be fetched again
func (t *Tracker) pruneStale() {
	for index, entry := range t.entries {
		if !t.fileExists(entry.Filename) {
			t.logger.WithFields(map[string]interface{}{
				"canvas":   index,
				"filename": entry.Filename,
			}).Debug("dropping stale ledger entry")
			delete(t.entries, index)
		}
	}
}

// scanDir adopts scheme-conforming files present on disk but absent
// from the ledger, so resume works even when the ledger was lost.
// Hybrid-named files win over plain-named ones for the same index.
func (t *Tracker) scanDir() error {
	infos, err := afero.ReadDir(t.fs, t.dir)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeSetup, "cannot read output directory "+t.dir)
	}

	adopt := func(index int, name string, size int64, modTime time.Time) {
		if _, known := t.entries[index]; known {
			return
		}
		t.entries[index] = Entry{Filename: name, SizeBytes: size, CompletedAt: modTime}
	}

	// First pass: hybrid names. Second pass: plain names fill the gaps.
	for _, info := range infos {
		if info.IsDir() || IsPlainName(info.Name()) {
			continue
		}
		if index, _, ok := parseIndexed(info.Name()); ok {
			adopt(index, info.Name(), info.Size(), info.ModTime())
		}
	}
	for _, info := range infos {
		if info.IsDir() || !IsPlainName(info.Name()) {
			continue
		}
		if index, _, ok := parseIndexed(info.Name()); ok {
			adopt(index, info.Name(), info.Size(), info.ModTime())
		}
	}

	return nil
}

// Detect reports how the canvas is materialized on disk. The query has
// no side effects; migration is a separate explicit step.
func (t *Tracker) Detect(index int, label string) Detection {
	entry, ok := t.entries[index]
	if !ok {
		return Missing
	}
	if !t.fileExists(entry.Filename) {
		delete(t.entries, index)
		return Missing
	}
	if label != "" && IsPlainName(entry.Filename) {
		return LegacyScheme
	}
	return CurrentScheme
}

// IsComplete reports whether the canvas is already materialized under
// any recognized naming scheme
func (t *Tracker) IsComplete(index int, label string) bool {
	return t.Detect(index, label) != Missing
}

// MigrateIfNeeded renames a legacy-named file to the hybrid scheme,
// preserving its on-disk extension. It is idempotent: once migrated,
// further calls do nothing. When the destination name already exists
// with a different size the migration fails with a conflict and the
// legacy file is left untouched.
func (t *Tracker) MigrateIfNeeded(index int, label string) (string, bool, error) {
	entry, ok := t.entries[index]
	if !ok {
		return "", false, nil
	}
	if label == "" || !IsPlainName(entry.Filename) {
		return entry.Filename, false, nil
	}

	target := FilenameFor(index, label, extensionOf(entry.Filename))
	srcPath := filepath.Join(t.dir, entry.Filename)
	dstPath := filepath.Join(t.dir, target)

	if dstInfo, err := t.fs.Stat(dstPath); err == nil {
		srcInfo, err := t.fs.Stat(srcPath)
		if err != nil {
			return "", false, errs.Wrap(err, errs.ErrorTypeMigrationConflict, "cannot stat "+srcPath)
		}
		if dstInfo.Size() != srcInfo.Size() {
			return "", false, errs.NewMigrationConflict(entry.Filename, target)
		}
		// Same content by size: the destination is already the migrated
		// copy, drop the redundant legacy file.
		if err := t.fs.Remove(srcPath); err != nil {
			return "", false, errs.Wrap(err, errs.ErrorTypeMigrationConflict, "cannot remove duplicate "+srcPath)
		}
	} else {
		if err := t.fs.Rename(srcPath, dstPath); err != nil {
			return "", false, errs.Wrap(err, errs.ErrorTypeMigrationConflict, "cannot rename "+srcPath)
		}
	}

	entry.Filename = target
	t.entries[index] = entry
	if err := t.persist(); err != nil {
		// The rename itself succeeded; resume state degrades to memory.
		return target, true, nil
	}

	t.logger.WithFields(map[string]interface{}{
		"canvas": index,
		"to":     target,
	}).Info("migrated legacy filename")

	return target, true, nil
}

// RecordComplete marks the canvas materialized under filename and
// persists the ledger. Ledger write failures degrade the tracker to
// in-memory state for the rest of the run; the first failure is
// returned so the caller can surface a warning.
func (t *Tracker) RecordComplete(index int, filename string, sizeBytes int64) error {
	t.entries[index] = Entry{
		Filename:    filename,
		SizeBytes:   sizeBytes,
		CompletedAt: time.Now().UTC(),
	}
	return t.persist()
}

func (t *Tracker) persist() error {
	if t.degraded {
		return nil
	}
	if err := t.ledger.Save(t.entries); err != nil {
		t.degraded = true
		t.logger.WithError(err).Warn("cannot persist resume state, tracking in memory for the rest of the run")
		return err
	}
	return nil
}

// Reset clears in-memory and persisted resume state. Image files are
// not touched.
func (t *Tracker) Reset() error {
	t.entries = make(map[int]Entry)
	return t.ledger.Delete()
}

// Entry returns the recorded state for a canvas
func (t *Tracker) Entry(index int) (Entry, bool) {
	entry, ok := t.entries[index]
	return entry, ok
}

// Count returns the number of canvases recorded complete
func (t *Tracker) Count() int {
	return len(t.entries)
}

// Dir returns the output directory the tracker watches
func (t *Tracker) Dir() string {
	return t.dir
}

// Degraded reports whether ledger persistence has failed this run
func (t *Tracker) Degraded() bool {
	return t.degraded
}

func (t *Tracker) fileExists(name string) bool {
	if name == "" {
		return false
	}
	_, err := t.fs.Stat(filepath.Join(t.dir, name))
	return err == nil
}
