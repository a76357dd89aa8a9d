package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/v0xg/chartscrape/internal/chart"
)

// DefaultPath is where the latest record is written
const DefaultPath = "chart_data.json"

// Store keeps the most recent record in a single JSON file. Each Save
// replaces the file; there is no history and no per-request key.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store writing to path
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the snapshot file location
func (s *Store) Path() string {
	return s.path
}

// Save writes rec as indented JSON and returns the file size. The file is
// replaced by rename so readers see either the old or the new record.
func (s *Store) Save(rec chart.Record) (int64, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return int64(len(data)), nil
}

// Load reads the last saved record. os.ErrNotExist is returned as-is
// (wrapped) when nothing has been saved yet.
func (s *Store) Load() (chart.Record, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		return chart.Record{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var rec chart.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return chart.Record{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return rec, nil
}
