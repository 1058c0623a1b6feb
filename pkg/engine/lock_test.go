package engine

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/spf13/afero"

	errs "iiifdl/pkg/errors"
)

func TestAcquireLockWritesOwnerInfo(t *testing.T) {
	fs := afero.NewMemMapFs()
	release, err := acquireLock(fs, "/out", "run-1234")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	data, err := afero.ReadFile(fs, "/out/"+LockFilename)
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}
	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("unmarshal lock: %v", err)
	}
	if info.RunID != "run-1234" {
		t.Errorf("run_id = %q, want run-1234", info.RunID)
	}
	if info.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", info.PID, os.Getpid())
	}
	if info.StartedAt.IsZero() {
		t.Error("started_at not set")
	}
}

func TestAcquireLockRefusesHeldLock(t *testing.T) {
	fs := afero.NewMemMapFs()
	release, err := acquireLock(fs, "/out", "first")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err = acquireLock(fs, "/out", "second")
	if !errs.IsType(err, errs.ErrorTypeSetup) {
		t.Fatalf("second acquire err = %v, want setup error", err)
	}

	release()
	release2, err := acquireLock(fs, "/out", "third")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()

	exists, _ := afero.Exists(fs, "/out/"+LockFilename)
	if exists {
		t.Error("lock file survives release")
	}
}
