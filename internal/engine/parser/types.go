// # internal/engine/parser/types.go
package parser

// Model is one validated model declaration found in a source file.
type Model struct {
	Namespace string                `json:"namespace"`
	Reducers  map[string]MethodInfo `json:"reducers"`
	Effects   map[string]MethodInfo `json:"effects"`
}

// MethodInfo is a single reducer or effect entry. Code holds the regenerated
// text of the whole entry (key and value).
type MethodInfo struct {
	Code string          `json:"code"`
	Loc  *SourceLocation `json:"loc,omitempty"`
}

// SourceLocation is a start/end span in the original file.
type SourceLocation struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Position uses 1-based lines and 0-based UTF-16 columns, which is what
// editors expect. Offset is the byte offset into the source.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// MethodKind tells reducers and effects apart when a model is flattened.
type MethodKind string

const (
	KindReducer MethodKind = "reducer"
	KindEffect  MethodKind = "effect"
)

const (
	groupNamespace = "namespace"
	groupReducers  = "reducers"
	groupEffects   = "effects"
)

func newModel() *Model {
	return &Model{
		Reducers: make(map[string]MethodInfo),
		Effects:  make(map[string]MethodInfo),
	}
}

// Valid reports whether the model has a namespace and at least one method.
func (m *Model) Valid() bool {
	if m == nil || m.Namespace == "" {
		return false
	}
	return len(m.Reducers) > 0 || len(m.Effects) > 0
}

// Group returns the reducers or effects map for kind.
func (m *Model) Group(kind MethodKind) map[string]MethodInfo {
	switch kind {
	case KindReducer:
		return m.Reducers
	case KindEffect:
		return m.Effects
	default:
		return nil
	}
}

// ActionType returns the dispatchable "namespace/name" string.
func ActionType(namespace, method string) string {
	return namespace + "/" + method
}
