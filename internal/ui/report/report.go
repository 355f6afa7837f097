package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"dvamodel/internal/core/ports"
	"dvamodel/internal/engine/parser"
	"dvamodel/internal/shared/util"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or markdown)", s)
	}
}

// Renderer writes models, lookups and scan results in one output format.
// File paths under Root are shown relative to it.
type Renderer struct {
	Format Format
	Root   string
}

type methodRow struct {
	file      string
	namespace string
	kind      parser.MethodKind
	name      string
	info      parser.MethodInfo
}

func flatten(files []ports.FileModels) []methodRow {
	var rows []methodRow
	for _, f := range files {
		for _, m := range f.Models {
			for _, kind := range []parser.MethodKind{parser.KindReducer, parser.KindEffect} {
				group := m.Group(kind)
				for _, name := range util.SortedStringKeys(group) {
					rows = append(rows, methodRow{f.File, m.Namespace, kind, name, group[name]})
				}
			}
		}
	}
	return rows
}

func (r Renderer) display(path string) string {
	if r.Root == "" {
		return path
	}
	rel, err := filepath.Rel(r.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func position(loc *parser.SourceLocation) string {
	if loc == nil {
		return "-"
	}
	return fmt.Sprintf("%d:%d", loc.Start.Line, loc.Start.Column+1)
}

// Models writes every reducer and effect of files.
func (r Renderer) Models(w io.Writer, files []ports.FileModels) error {
	if r.Format == FormatJSON {
		if files == nil {
			files = []ports.FileModels{}
		}
		return writeJSON(w, files)
	}

	rows := flatten(files)
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 models)")
		return nil
	}

	t := r.newTable(w)
	t.AppendHeader(table.Row{"Action", "Kind", "File", "Position"})
	for _, row := range rows {
		t.AppendRow(table.Row{
			parser.ActionType(row.namespace, row.name),
			string(row.kind),
			r.display(row.file),
			position(row.info.Loc),
		})
	}
	r.render(t)
	return nil
}

// Matches writes the result of an action type lookup, including code.
func (r Renderer) Matches(w io.Writer, matches []ports.Match) error {
	switch r.Format {
	case FormatJSON:
		if matches == nil {
			matches = []ports.Match{}
		}
		return writeJSON(w, matches)
	case FormatMarkdown:
		for _, m := range matches {
			_, _ = fmt.Fprintf(w, "### `%s` (%s)\n\n%s:%s\n\n```js\n%s\n```\n\n",
				m.ActionType, m.Kind, r.display(m.File), position(m.Method.Loc), m.Method.Code)
		}
		if len(matches) == 0 {
			_, _ = fmt.Fprintln(w, "_no matches_")
		}
		return nil
	}

	if len(matches) == 0 {
		_, _ = fmt.Fprintln(w, "(0 matches)")
		return nil
	}
	for _, m := range matches {
		_, _ = fmt.Fprintf(w, "%s %s %s:%s\n%s\n\n",
			m.ActionType, m.Kind, r.display(m.File), position(m.Method.Loc), m.Method.Code)
	}
	return nil
}

// ActionTypes writes one action type per line, or a JSON array.
func (r Renderer) ActionTypes(w io.Writer, types []string) error {
	if r.Format == FormatJSON {
		if types == nil {
			types = []string{}
		}
		return writeJSON(w, types)
	}
	prefix := ""
	if r.Format == FormatMarkdown {
		prefix = "- "
	}
	for _, t := range types {
		_, _ = fmt.Fprintln(w, prefix+t)
	}
	return nil
}

type scanJSON struct {
	ScanID       string   `json:"scan_id"`
	FilesScanned int      `json:"files_scanned"`
	FilesSkipped int      `json:"files_skipped"`
	FilesFailed  int      `json:"files_failed"`
	Models       int      `json:"models"`
	DurationMS   int64    `json:"duration_ms"`
	Warnings     []string `json:"warnings"`
}

// Scan writes a scan summary with its warnings.
func (r Renderer) Scan(w io.Writer, res ports.ScanResult) error {
	if r.Format == FormatJSON {
		warnings := res.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		return writeJSON(w, scanJSON{
			ScanID:       res.ScanID,
			FilesScanned: res.FilesScanned,
			FilesSkipped: res.FilesSkipped,
			FilesFailed:  res.FilesFailed,
			Models:       res.Models,
			DurationMS:   res.Duration.Milliseconds(),
			Warnings:     warnings,
		})
	}

	t := r.newTable(w)
	t.AppendHeader(table.Row{"Files", "Unchanged", "Failed", "Models", "Duration"})
	t.AppendRow(table.Row{res.FilesScanned, res.FilesSkipped, res.FilesFailed, res.Models, res.Duration.Round(time.Millisecond).String()})
	r.render(t)

	if len(res.Warnings) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, warning := range res.Warnings {
			_, _ = fmt.Fprintf(w, "warning: %s\n", warning)
		}
	}
	return nil
}

func (r Renderer) newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func (r Renderer) render(t table.Writer) {
	if r.Format == FormatMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
