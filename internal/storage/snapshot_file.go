package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"analyticsScope/internal/dashboard"
)

// SnapshotFile keeps the latest full snapshot on disk, replaced atomically.
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

func (f *SnapshotFile) Name() string { return "snapshot_file" }

// Load returns the stored snapshot; ok is false when none was written yet.
func (f *SnapshotFile) Load() (*dashboard.Snapshot, bool, error) {
	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return nil, false, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap dashboard.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, true, nil
}

// PutSnapshot writes snap to a temp file and renames it over the previous one.
func (f *SnapshotFile) PutSnapshot(_ context.Context, snap *dashboard.Snapshot) error {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
