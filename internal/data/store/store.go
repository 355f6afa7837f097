package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dvamodel/internal/engine/parser"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second

	// Fixed width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// FileModel is one persisted model together with the file it came from.
type FileModel struct {
	File  string       `json:"file"`
	Model parser.Model `json:"model"`
}

// MethodRow is one persisted reducer or effect.
type MethodRow struct {
	File      string
	Namespace string
	Kind      parser.MethodKind
	Name      string
	Method    parser.MethodInfo
}

// ScanRecord is the summary of one completed scan.
type ScanRecord struct {
	ID           string
	StartedAt    time.Time
	Duration     time.Duration
	FilesScanned int
	FilesSkipped int
	FilesFailed  int
	Models       int
	Warnings     int
}

// Store persists the model index in a sqlite database.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// FileHash returns the content hash recorded for path on its last index.
func (s *Store) FileHash(ctx context.Context, path string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.withRetry("read file hash", func() error {
		return s.db.QueryRowContext(ctx, `SELECT hash FROM files WHERE path = ?`, path).Scan(&hash)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// ReplaceFile swaps every model recorded for path with models. A file with
// no models still records its hash.
func (s *Store) ReplaceFile(ctx context.Context, path, hash string, models []parser.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("replace file", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := replaceFileTx(ctx, tx, path, hash, models); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func replaceFileTx(ctx context.Context, tx *sql.Tx, path, hash string, models []parser.Model) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files(path, hash, indexed_at_utc) VALUES (?, ?, ?)`,
		path, hash, time.Now().UTC().Format(timeLayout),
	); err != nil {
		return err
	}

	for ordinal, m := range models {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO models(file_path, ordinal, namespace) VALUES (?, ?, ?)`,
			path, ordinal, m.Namespace,
		)
		if err != nil {
			return err
		}
		modelID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, kind := range []parser.MethodKind{parser.KindReducer, parser.KindEffect} {
			for name, info := range m.Group(kind) {
				if err := insertMethod(ctx, tx, modelID, kind, name, info); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func insertMethod(ctx context.Context, tx *sql.Tx, modelID int64, kind parser.MethodKind, name string, info parser.MethodInfo) error {
	var loc parser.SourceLocation
	hasLoc := 0
	if info.Loc != nil {
		loc = *info.Loc
		hasLoc = 1
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO methods (
  model_id, kind, name, code, has_loc,
  start_line, start_column, start_offset, end_line, end_column, end_offset
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		modelID, string(kind), name, info.Code, hasLoc,
		loc.Start.Line, loc.Start.Column, loc.Start.Offset,
		loc.End.Line, loc.End.Column, loc.End.Offset,
	)
	return err
}

// DeleteFile drops path and its models from the index.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("delete file", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
		return err
	})
}

const methodColumns = `
  m.file_path, m.ordinal, m.namespace, x.kind, x.name, x.code, x.has_loc,
  x.start_line, x.start_column, x.start_offset, x.end_line, x.end_column, x.end_offset`

// Models returns every indexed model ordered by file and source position.
func (s *Store) Models(ctx context.Context) ([]FileModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load models", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT m.file_path, m.ordinal, m.namespace FROM models m
ORDER BY m.file_path ASC, m.ordinal ASC`)
		return qErr
	})
	if err != nil {
		return nil, err
	}

	type modelKey struct {
		file    string
		ordinal int
	}
	out := make([]FileModel, 0)
	index := make(map[modelKey]int)
	for rows.Next() {
		var (
			key modelKey
			ns  string
		)
		if err := rows.Scan(&key.file, &key.ordinal, &ns); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan model row: %w", err)
		}
		index[key] = len(out)
		out = append(out, FileModel{File: key.file, Model: parser.Model{
			Namespace: ns,
			Reducers:  make(map[string]parser.MethodInfo),
			Effects:   make(map[string]parser.MethodInfo),
		}})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate model rows: %w", err)
	}
	rows.Close()

	methods, err := s.queryMethods(ctx, `SELECT`+methodColumns+`
FROM methods x JOIN models m ON m.id = x.model_id`)
	if err != nil {
		return nil, err
	}
	for _, row := range methods {
		i, ok := index[modelKey{row.File, row.ordinal}]
		if !ok {
			continue
		}
		if group := out[i].Model.Group(row.Kind); group != nil {
			group[row.Name] = row.Method
		}
	}
	return out, nil
}

// LookupAction resolves a "namespace/name" action type. Reducers sort before
// effects.
func (s *Store) LookupAction(ctx context.Context, actionType string) ([]MethodRow, error) {
	cut := strings.LastIndex(actionType, "/")
	if cut <= 0 || cut == len(actionType)-1 {
		return nil, fmt.Errorf("action type %q must look like namespace/name", actionType)
	}
	namespace, name := actionType[:cut], actionType[cut+1:]

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.queryMethods(ctx, `SELECT`+methodColumns+`
FROM methods x JOIN models m ON m.id = x.model_id
WHERE m.namespace = ? AND x.name = ?
ORDER BY CASE x.kind WHEN 'reducer' THEN 0 ELSE 1 END, m.file_path ASC, m.ordinal ASC`,
		namespace, name)
	if err != nil {
		return nil, err
	}
	out := make([]MethodRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.MethodRow)
	}
	return out, nil
}

type methodRow struct {
	MethodRow
	ordinal int
}

func (s *Store) queryMethods(ctx context.Context, query string, args ...any) ([]methodRow, error) {
	var rows *sql.Rows
	err := s.withRetry("load methods", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]methodRow, 0)
	for rows.Next() {
		var (
			row    methodRow
			kind   string
			hasLoc int
			loc    parser.SourceLocation
		)
		if err := rows.Scan(
			&row.File, &row.ordinal, &row.Namespace, &kind, &row.Name, &row.Method.Code, &hasLoc,
			&loc.Start.Line, &loc.Start.Column, &loc.Start.Offset,
			&loc.End.Line, &loc.End.Column, &loc.End.Offset,
		); err != nil {
			return nil, fmt.Errorf("scan method row: %w", err)
		}
		row.Kind = parser.MethodKind(kind)
		if hasLoc == 1 {
			row.Method.Loc = &loc
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate method rows: %w", err)
	}
	return out, nil
}

// RecordScan stores a scan summary and returns its id, generating one when
// scan.ID is empty.
func (s *Store) RecordScan(ctx context.Context, scan ScanRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.StartedAt.IsZero() {
		scan.StartedAt = time.Now().UTC()
	}

	err := s.withRetry("record scan", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO scans (
  id, started_at_utc, duration_ms, files_scanned, files_skipped, files_failed, model_count, warning_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			scan.ID,
			scan.StartedAt.UTC().Format(timeLayout),
			scan.Duration.Milliseconds(),
			scan.FilesScanned,
			scan.FilesSkipped,
			scan.FilesFailed,
			scan.Models,
			scan.Warnings,
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return scan.ID, nil
}

// Scans returns up to limit scan summaries, newest first.
func (s *Store) Scans(ctx context.Context, limit int) ([]ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var rows *sql.Rows
	err := s.withRetry("load scans", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, started_at_utc, duration_ms, files_scanned, files_skipped, files_failed, model_count, warning_count
FROM scans ORDER BY started_at_utc DESC LIMIT ?`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ScanRecord, 0)
	for rows.Next() {
		var (
			rec        ScanRecord
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &startedRaw, &durationMS, &rec.FilesScanned, &rec.FilesSkipped,
			&rec.FilesFailed, &rec.Models, &rec.Warnings); err != nil {
			return nil, fmt.Errorf("scan scans row: %w", err)
		}
		started, err := time.Parse(timeLayout, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse scan timestamp %q: %w", startedRaw, err)
		}
		rec.StartedAt = started.UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans rows: %w", err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
