package panel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"cn-alpha/internal/model"
)

// StorageReadError means the persisted panel is missing or unreadable.
// Fatal unless the caller explicitly asked for a full rebuild; the store
// never silently falls back to partial data.
type StorageReadError struct {
	Path string
	Err  error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("panel store unreadable at %s: %v", e.Path, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// Store owns the persisted panel parquet file. It is the system of record;
// writes go through MergeIncremental or an explicit Rebuild.
type Store struct {
	Path  string
	Dedup DedupPolicy
}

func NewStore(path string, policy DedupPolicy) *Store {
	return &Store{Path: path, Dedup: policy}
}

// Exists reports whether a persisted panel is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads the persisted panel. Any read failure surfaces as a
// *StorageReadError.
func (s *Store) Load() (*Panel, error) {
	bars, err := parquet.ReadFile[model.Bar](s.Path)
	if err != nil {
		return nil, &StorageReadError{Path: s.Path, Err: err}
	}
	return New(bars), nil
}

// Bars loads the panel and returns its rows in (code, date) order. Satisfies
// the factor engine's source contract.
func (s *Store) Bars() ([]model.Bar, error) {
	p, err := s.Load()
	if err != nil {
		return nil, err
	}
	return p.Bars, nil
}

// Save persists the panel, creating the parent directory if needed.
func (s *Store) Save(p *Panel) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("create panel dir: %w", err)
	}
	if err := parquet.WriteFile(s.Path, p.Bars); err != nil {
		return fmt.Errorf("write panel %s: %w", s.Path, err)
	}
	return nil
}

// MergeIncremental loads the panel, merges newRows under the store's dedup
// policy, persists and returns the result. The caller is the single writer;
// parallel ingest must funnel through one MergeIncremental call.
func (s *Store) MergeIncremental(newRows []model.Bar) (*Panel, error) {
	p, err := s.Load()
	if err != nil {
		return nil, err
	}
	merged := p.Merge(newRows, s.Dedup)
	if err := s.Save(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Rebuild replaces the panel wholesale. Explicit operator action only; a
// failed Load must never degrade into this automatically.
func (s *Store) Rebuild(bars []model.Bar) (*Panel, error) {
	p := (&Panel{}).Merge(bars, s.Dedup)
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}
