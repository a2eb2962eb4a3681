// Package metrics holds the pipeline's prometheus counters. A run is a
// batch process, so the counters mainly feed the end-of-run summary, but
// they register on the default registry so an embedding service can
// expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SymbolsSkipped counts per-symbol ingest failures that were isolated
	// (logged and skipped) instead of aborting the batch.
	SymbolsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cnalpha_ingest_symbols_skipped_total",
		Help: "Symbols skipped during ingest due to per-symbol fetch failures.",
	})

	// DegenerateCohorts counts date cohorts with fewer than 2 members seen
	// during cross-sectional normalization.
	DegenerateCohorts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cnalpha_crosssec_degenerate_cohorts_total",
		Help: "Date cohorts of size < 2 encountered during normalization.",
	})

	// DuplicateRowsDropped counts (code, date) duplicates resolved by the
	// panel merge dedup.
	DuplicateRowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cnalpha_panel_duplicate_rows_dropped_total",
		Help: "Duplicate panel rows dropped by merge dedup.",
	})

	// BarsIngested counts bars fetched successfully across ingest batches.
	BarsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cnalpha_ingest_bars_total",
		Help: "Bars fetched successfully from the data provider.",
	})
)
