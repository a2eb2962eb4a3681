package panel

import (
	"fmt"
	"sort"

	"cn-alpha/internal/metrics"
	"cn-alpha/internal/model"
)

// DedupPolicy decides which row survives when a merge sees the same
// (code, date) key more than once.
type DedupPolicy string

const (
	// DedupNewestWins keeps the most recently merged row. Default: a re-fetch
	// supersedes whatever the panel held before.
	DedupNewestWins DedupPolicy = "newest"
	// DedupHighestClose keeps the row with the highest close. Only here to
	// reproduce panels built by the legacy "sort close descending, keep
	// first" rule; do not use for new panels.
	DedupHighestClose DedupPolicy = "highest_close"
)

// ParseDedupPolicy maps a config string to a policy.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch DedupPolicy(s) {
	case DedupNewestWins, DedupHighestClose:
		return DedupPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q (use: newest, highest_close)", s)
	}
}

// Panel is the long-format panel, sorted by (code, date) and unique on
// (code, date). Existing rows are never edited in place; the only mutation
// path is append-then-dedup via Merge.
type Panel struct {
	Bars []model.Bar
}

// New builds a panel from bars, restoring the canonical sort order.
func New(bars []model.Bar) *Panel {
	p := &Panel{Bars: bars}
	p.sort()
	return p
}

func (p *Panel) sort() {
	sort.SliceStable(p.Bars, func(i, j int) bool {
		return p.Bars[i].Less(p.Bars[j])
	})
}

func (p *Panel) Len() int { return len(p.Bars) }

// MaxDates returns the latest observed date per code. Incremental ingest
// fetches strictly after these dates.
func (p *Panel) MaxDates() map[string]model.Date {
	m := make(map[string]model.Date)
	for _, b := range p.Bars {
		if d, ok := m[b.Code]; !ok || b.Date > d {
			m[b.Code] = b.Date
		}
	}
	return m
}

// Merge appends newRows, dedups by (code, date) under policy and returns a
// new sorted panel. The receiver is left untouched. Merging the same batch
// twice yields the same panel as merging it once.
func (p *Panel) Merge(newRows []model.Bar, policy DedupPolicy) *Panel {
	combined := make([]model.Bar, 0, len(p.Bars)+len(newRows))
	combined = append(combined, p.Bars...)
	combined = append(combined, newRows...)

	keep := make(map[model.BarKey]int, len(combined))
	dropped := 0
	for i, b := range combined {
		j, seen := keep[b.Key()]
		if !seen {
			keep[b.Key()] = i
			continue
		}
		dropped++
		switch policy {
		case DedupHighestClose:
			if b.Close > combined[j].Close {
				keep[b.Key()] = i
			}
		default: // DedupNewestWins: later append order supersedes
			keep[b.Key()] = i
		}
	}
	if dropped > 0 {
		metrics.DuplicateRowsDropped.Add(float64(dropped))
	}

	out := make([]model.Bar, 0, len(keep))
	for _, i := range keep {
		out = append(out, combined[i])
	}
	return New(out)
}
