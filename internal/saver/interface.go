package saver

import (
	"fmt"
	"strings"

	"cn-alpha/internal/model"
)

// NavSaver is the abstraction for persisting the nav curve artifact.
// High-level (app) injects the implementation; the backtester only depends
// on the interface.
type NavSaver interface {
	Save(points []model.NavPoint, path string) error
	Extension() string
}

// NewNavSaver creates an implementation by format (csv, parquet, json).
// Returns nil if the format is not supported.
func NewNavSaver(format string) NavSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// MustNavSaver is NewNavSaver but panics on an unsupported format.
func MustNavSaver(format string) NavSaver {
	s := NewNavSaver(format)
	if s == nil {
		panic(fmt.Sprintf("saver: unsupported format %q (use: csv, parquet, json)", format))
	}
	return s
}
