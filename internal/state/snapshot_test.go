package state

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/captaintwin/itnews-portal/internal/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "selected.json")

	want := model.Selection{
		{ID: "a1", Title: "First", Source: "alpha", CharCount: 1200},
		{ID: "b2", Title: "Second", Source: "beta", CharCount: 900},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load[model.Selection](path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")

	if err := Save(path, []string{"one", "two", "three"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := Save(path, []string{"four"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := Load[[]string](path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"four"}, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Error("temp file left behind after save")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load[model.Selection](filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"truncated`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Load[model.Selection](path)
	if err == nil {
		t.Fatal("expected error for corrupt file, got nil")
	}
	if errors.Is(err, fs.ErrNotExist) {
		t.Error("corrupt file misreported as missing")
	}
}
