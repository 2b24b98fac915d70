package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/storage"
)

func TestLoadMissingFileIsNotFound(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = store.Load(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	state := reward.NewState()
	state.Points = 777
	state.Tasks[reward.TaskRetweetPost] = reward.TaskRecord{Completed: true, LastCompleted: "2026-03-01"}

	if err := store.Save(context.Background(), state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Points != 777 {
		t.Errorf("points = %d", got.Points)
	}
	if !got.Tasks[reward.TaskRetweetPost].Completed {
		t.Error("task record lost")
	}

	// No temp file lingers after a successful write.
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
