package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"cn-alpha/internal/model"
)

// DataProvider is the abstraction used when fetching daily bars from a data
// source. Implementations own their internal transport and cleanup.
type DataProvider interface {
	GetName() string
	// FetchDaily returns bars for one code over [from, to], oldest first.
	// Failures are per-code; the batch runner isolates them.
	FetchDaily(ctx context.Context, code string, from, to model.Date) ([]model.Bar, error)
	Close() error
}

// FetchError is a per-code fetch failure. Logged and skipped, never fatal
// for the batch.
type FetchError struct {
	Code string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Code, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LoadCodes reads a symbol list from a text file: one code per line,
// blank lines and #-comments skipped.
func LoadCodes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open codes file: %w", err)
	}
	defer f.Close()

	var codes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read codes file: %w", err)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("codes file %s is empty", path)
	}
	return codes, nil
}
