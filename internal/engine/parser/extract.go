package parser

import (
	"dvamodel/internal/shared/observability"
	"log/slog"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// entryResult is the outcome of one reducer/effect entry. ok is false when
// the entry was skipped.
type entryResult struct {
	name string
	info MethodInfo
	ok   bool
}

// ExtractModel builds a Model from an object literal candidate. It returns
// false when the candidate has no string namespace or no reducers and
// effects. Malformed entries are dropped one by one; ExtractModel itself
// never fails.
func ExtractModel(node *sitter.Node, source []byte, gen Generator) (model *Model, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("discarding model candidate", "panic", r)
			model, ok = nil, false
		}
	}()

	if node == nil {
		return nil, false
	}
	if gen == nil {
		gen = SourceGenerator{}
	}

	m := newModel()
	for _, prop := range namedChildren(node) {
		if prop.Kind() != kindPair {
			continue
		}
		key := identifierName(prop.ChildByFieldName(fieldKey), source)
		value := prop.ChildByFieldName(fieldValue)

		switch key {
		case groupNamespace:
			if ns, isString := stringValue(value, source); isString {
				m.Namespace = ns
			}
		case groupReducers, groupEffects:
			if value == nil || value.Kind() != kindObject {
				continue
			}
			group := m.Reducers
			if key == groupEffects {
				group = m.Effects
			}
			for _, entry := range namedChildren(value) {
				res := extractEntry(entry, source, gen)
				if !res.ok {
					observability.EntriesSkippedTotal.Inc()
					continue
				}
				group[res.name] = res.info
			}
		}
	}

	if !m.Valid() {
		return nil, false
	}
	return m, true
}

func extractEntry(entry *sitter.Node, source []byte, gen Generator) (res entryResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("skipping model entry", "kind", entry.Kind(), "panic", r)
			res = entryResult{}
		}
	}()

	name, ok := entryName(entry, source)
	if !ok {
		slog.Debug("skipping model entry without a name", "kind", entry.Kind())
		return entryResult{}
	}

	code, err := gen.Generate(entry, source)
	if err != nil {
		slog.Debug("skipping model entry", "name", name, "error", err)
		return entryResult{}
	}

	return entryResult{
		name: name,
		info: MethodInfo{Code: code, Loc: locationOf(entry, source)},
		ok:   true,
	}
}

func entryName(entry *sitter.Node, source []byte) (string, bool) {
	switch entry.Kind() {
	case kindPair:
		return propertyName(entry.ChildByFieldName(fieldKey), source)
	case kindMethodDefinition:
		return propertyName(entry.ChildByFieldName(fieldName), source)
	case kindShorthandProperty:
		return propertyName(entry, source)
	default:
		return "", false
	}
}
