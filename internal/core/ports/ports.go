package ports

import (
	"context"
	"dvamodel/internal/data/store"
	"dvamodel/internal/engine/parser"
	"time"
)

// ModelExtractor abstracts per-file model extraction.
type ModelExtractor interface {
	ParseFile(ctx context.Context, path string) ([]parser.Model, error)
}

// ModelIndex abstracts persistence of extracted models between runs.
type ModelIndex interface {
	FileHash(ctx context.Context, path string) (string, bool, error)
	ReplaceFile(ctx context.Context, path, hash string, models []parser.Model) error
	DeleteFile(ctx context.Context, path string) error
	Models(ctx context.Context) ([]store.FileModel, error)
	RecordScan(ctx context.Context, scan store.ScanRecord) (string, error)
}

// ScanRequest defines a scan operation request for driving adapters.
// Empty Paths scans the configured watch paths. Force re-parses files whose
// content hash did not change.
type ScanRequest struct {
	Paths []string
	Force bool
}

// ScanResult summarizes a completed scan operation.
type ScanResult struct {
	ScanID       string
	FilesScanned int
	FilesSkipped int
	FilesFailed  int
	Models       int
	Duration     time.Duration
	Warnings     []string
}

// WatchUpdate is emitted after each debounced batch in watch mode.
type WatchUpdate struct {
	Changed []string
	Removed []string
	Models  int
	Files   int
}

// ModelService is the driving-port surface over scan and lookup use cases.
type ModelService interface {
	Scan(ctx context.Context, req ScanRequest) (ScanResult, error)
	ParseFile(ctx context.Context, path string) ([]parser.Model, error)
	Lookup(actionType string) []Match
	ActionTypes(prefix string) []string
	Snapshot() []FileModels
}

// Match is one reducer or effect resolved from an action type.
type Match struct {
	File       string            `json:"file"`
	Namespace  string            `json:"namespace"`
	Name       string            `json:"name"`
	Kind       parser.MethodKind `json:"kind"`
	ActionType string            `json:"action_type"`
	Method     parser.MethodInfo `json:"method"`
}

// FileModels are the models extracted from one file.
type FileModels struct {
	File   string         `json:"file"`
	Models []parser.Model `json:"models"`
}
