package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	errs "iiifdl/pkg/errors"
)

// LedgerFilename is the resume ledger colocated with the output
// directory, one per directory
const LedgerFilename = ".iiif-download-state.json"

// Entry is one completed canvas in the resume ledger
type Entry struct {
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"sizeBytes"`
	CompletedAt time.Time `json:"completedAt"`
}

// ledger persists the canvas-index -> Entry mapping as a JSON object
// keyed by decimal index. Unknown fields in entries are ignored on
// read, so future writers can extend the format.
type ledger struct {
	fs   afero.Fs
	path string
}

func newLedger(fs afero.Fs, dir string) *ledger {
	return &ledger{fs: fs, path: filepath.Join(dir, LedgerFilename)}
}

// Load reads the ledger, returning an empty map when none exists
func (l *ledger) Load() (map[int]Entry, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[int]Entry), nil
		}
		return nil, errs.NewLedgerIO(err, l.path)
	}

	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.NewLedgerIO(err, l.path)
	}

	entries := make(map[int]Entry, len(raw))
	for key, entry := range raw {
		index, err := strconv.Atoi(key)
		if err != nil || index < 1 {
			continue
		}
		entries[index] = entry
	}
	return entries, nil
}

// Save rewrites the full ledger atomically: encode to a temporary file,
// sync, then rename over the previous version. A failed write never
// corrupts previously recorded entries.
func (l *ledger) Save(entries map[int]Entry) error {
	raw := make(map[string]Entry, len(entries))
	for index, entry := range entries {
		raw[strconv.Itoa(index)] = entry
	}

	tempPath := l.path + ".tmp"
	file, err := l.fs.Create(tempPath)
	if err != nil {
		return errs.NewLedgerIO(err, l.path)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(raw); err != nil {
		file.Close()
		l.fs.Remove(tempPath)
		return errs.NewLedgerIO(err, l.path)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		l.fs.Remove(tempPath)
		return errs.NewLedgerIO(err, l.path)
	}

	if err := file.Close(); err != nil {
		l.fs.Remove(tempPath)
		return errs.NewLedgerIO(err, l.path)
	}

	if err := l.fs.Rename(tempPath, l.path); err != nil {
		l.fs.Remove(tempPath)
		return errs.NewLedgerIO(err, l.path)
	}

	return nil
}

// Delete removes the persisted ledger; a missing file is not an error
func (l *ledger) Delete() error {
	if err := l.fs.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errs.NewLedgerIO(err, l.path)
	}
	return nil
}
