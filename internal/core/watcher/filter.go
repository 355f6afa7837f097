package watcher

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultExtensions are the source extensions a model file can have.
var DefaultExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// Filter decides which directories and files take part in scans and watch
// mode. Patterns match base names.
type Filter struct {
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extensions   map[string]bool
}

func NewFilter(excludeDirs, excludeFiles, extensions []string) (*Filter, error) {
	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		exts[normalized] = true
	}

	return &Filter{
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extensions:   exts,
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *Filter) SkipDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (f *Filter) SkipFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if !f.extensions[filepath.Ext(base)] {
		return true
	}
	for _, g := range f.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}
