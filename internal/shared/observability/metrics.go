package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvamodel_parsing_seconds",
		Help:    "Time spent building a syntax tree for a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})

	ParseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvamodel_parse_failures_total",
		Help: "Files that could not be processed, by failure kind (io, syntax).",
	}, []string{"kind"})

	ModelsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvamodel_models_extracted_total",
		Help: "Total number of valid models extracted.",
	})

	EntriesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvamodel_entries_skipped_total",
		Help: "Reducer/effect entries dropped because they could not be named or regenerated.",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dvamodel_scan_seconds",
		Help:    "Time spent on a full or incremental scan.",
		Buckets: prometheus.DefBuckets,
	})

	FilesScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvamodel_files_scanned_total",
		Help: "Files visited by scans, by outcome (parsed, unchanged, failed).",
	}, []string{"outcome"})

	IndexedModels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dvamodel_indexed_models",
		Help: "Number of models currently held in the registry.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvamodel_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
