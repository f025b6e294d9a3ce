package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fileBackend writes the snapshot as a single JSON document. Writes go
// through a temp file and a rename so a crash mid-write can never leave a
// truncated snapshot behind.
type fileBackend struct {
	path string
}

func openFile(path string) (Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required for the file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &fileBackend{path: path}, nil
}

func (b *fileBackend) Load(context.Context) (*Snapshot, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return emptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	snap := emptySnapshot()
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

func (b *fileBackend) Save(_ context.Context, snap *Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func (b *fileBackend) Close() error { return nil }
