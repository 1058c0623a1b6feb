package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	errs "iiifdl/pkg/errors"
)

// LockFilename marks the output directory as claimed by a running
// download
const LockFilename = ".iiifdl.lock"

// lockInfo is written into the lock file so a stale lock can be traced
// back to the run that left it behind
type lockInfo struct {
	PID       int       `json:"pid"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// acquireLock claims exclusive use of dir for this run. A lock left by
// another run makes the claim fail; the returned release func removes
// the lock.
func acquireLock(fs afero.Fs, dir, runID string) (func(), error) {
	path := filepath.Join(dir, LockFilename)
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errs.NewSetup("%s exists: another download is running in this directory (remove the file if that run is gone)", path)
		}
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, "cannot create run lock")
	}

	info := lockInfo{PID: os.Getpid(), RunID: runID, StartedAt: time.Now().UTC()}
	if err := json.NewEncoder(f).Encode(info); err != nil {
		f.Close()
		fs.Remove(path)
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, "cannot write run lock")
	}
	if err := f.Close(); err != nil {
		fs.Remove(path)
		return nil, errs.Wrap(err, errs.ErrorTypeSetup, "cannot write run lock")
	}

	return func() { fs.Remove(path) }, nil
}
