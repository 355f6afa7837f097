package app

import (
	"dvamodel/internal/core/ports"
	"dvamodel/internal/engine/parser"
	"dvamodel/internal/shared/observability"
	"dvamodel/internal/shared/util"
	"strings"
	"sync"
)

// Registry holds the models of every indexed file in memory.
type Registry struct {
	mu     sync.RWMutex
	files  map[string][]parser.Model
	models int
}

func NewRegistry() *Registry {
	return &Registry{files: make(map[string][]parser.Model)}
}

// Set replaces the models recorded for path. An empty slice removes it.
func (r *Registry) Set(path string, models []parser.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models -= len(r.files[path])
	if len(models) == 0 {
		delete(r.files, path)
	} else {
		r.files[path] = append([]parser.Model(nil), models...)
		r.models += len(models)
	}
	observability.IndexedModels.Set(float64(r.models))
}

// Remove drops path and reports whether it was present.
func (r *Registry) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.files[path]
	if !ok {
		return false
	}
	r.models -= len(existing)
	delete(r.files, path)
	observability.IndexedModels.Set(float64(r.models))
	return true
}

func (r *Registry) Counts() (files, models int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files), r.models
}

// Files returns the indexed paths in sorted order.
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedStringKeys(r.files)
}

// Lookup resolves a dispatched action type to the methods that handle it.
// Reducers come before effects; within a kind, matches are ordered by file
// and then by position in the file.
func (r *Registry) Lookup(actionType string) []ports.Match {
	cut := strings.LastIndex(actionType, "/")
	if cut <= 0 || cut == len(actionType)-1 {
		return nil
	}
	namespace, name := actionType[:cut], actionType[cut+1:]

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ports.Match
	for _, kind := range []parser.MethodKind{parser.KindReducer, parser.KindEffect} {
		for _, file := range util.SortedStringKeys(r.files) {
			for _, m := range r.files[file] {
				if m.Namespace != namespace {
					continue
				}
				info, ok := m.Group(kind)[name]
				if !ok {
					continue
				}
				out = append(out, ports.Match{
					File:       file,
					Namespace:  namespace,
					Name:       name,
					Kind:       kind,
					ActionType: actionType,
					Method:     info,
				})
			}
		}
	}
	return out
}

// ActionTypes lists every distinct "namespace/name" starting with prefix.
func (r *Registry) ActionTypes(prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, models := range r.files {
		for _, m := range models {
			for _, group := range []map[string]parser.MethodInfo{m.Reducers, m.Effects} {
				for name := range group {
					actionType := parser.ActionType(m.Namespace, name)
					if strings.HasPrefix(actionType, prefix) {
						seen[actionType] = struct{}{}
					}
				}
			}
		}
	}
	return util.SortedStringKeys(seen)
}

// Snapshot copies the registry contents ordered by file path.
func (r *Registry) Snapshot() []ports.FileModels {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.FileModels, 0, len(r.files))
	for _, file := range util.SortedStringKeys(r.files) {
		out = append(out, ports.FileModels{
			File:   file,
			Models: append([]parser.Model(nil), r.files[file]...),
		})
	}
	return out
}
