package parser

import (
	"slices"
	"strings"
)

// Dialect selects the tree-sitter grammar used for a file.
type Dialect string

const (
	DialectJavaScript Dialect = "javascript"
	DialectTypeScript Dialect = "typescript"
	DialectTSX        Dialect = "tsx"
)

const (
	PluginTypeScript = "typescript"
	PluginJSX        = "jsx"
)

// Options is the per-file parser configuration. Plugins follow the babel
// naming ("typescript", "jsx", "decorators", ...); only typescript and jsx
// influence grammar selection, the rest are accepted and ignored.
// SourceType ("module" or "script") is likewise carried for babel
// compatibility and not consulted: the grammars accept both forms.
type Options struct {
	Plugins       []string
	SourceType    string
	ErrorRecovery bool
}

func (o Options) HasPlugin(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return slices.ContainsFunc(o.Plugins, func(p string) bool {
		return strings.ToLower(strings.TrimSpace(p)) == name
	})
}

// Dialect maps the plugin set onto a grammar. tree-sitter-javascript parses
// JSX natively, so jsx alone stays on the javascript grammar.
func (o Options) Dialect() Dialect {
	switch {
	case o.HasPlugin(PluginTypeScript) && o.HasPlugin(PluginJSX):
		return DialectTSX
	case o.HasPlugin(PluginTypeScript):
		return DialectTypeScript
	default:
		return DialectJavaScript
	}
}
