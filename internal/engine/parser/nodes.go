package parser

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// tree-sitter node kinds inspected by the locator and extractor. The
// javascript, typescript and tsx grammars share these names.
const (
	kindExportStatement     = "export_statement"
	kindExpressionStatement = "expression_statement"
	kindParenthesized       = "parenthesized_expression"
	kindObject              = "object"
	kindCallExpression      = "call_expression"
	kindAsExpression        = "as_expression"
	kindPair                = "pair"
	kindMethodDefinition    = "method_definition"
	kindShorthandProperty   = "shorthand_property_identifier"
	kindPropertyIdentifier  = "property_identifier"
	kindIdentifier          = "identifier"
	kindString              = "string"
	kindStringFragment      = "string_fragment"
	kindEscapeSequence      = "escape_sequence"
	kindDefaultKeyword      = "default"
	kindComment             = "comment"
	kindComputedProperty    = "computed_property_name"
	fieldArguments          = "arguments"
	fieldKey                = "key"
	fieldValue              = "value"
	fieldName               = "name"
	fieldDeclaration        = "declaration"
)

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint(len(source)) {
		return ""
	}
	return string(source[start:end])
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == kindComment {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	children := namedChildren(node)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == kindParenthesized {
		node = firstNamedChild(node)
	}
	return node
}

// positionOf converts a tree-sitter point (byte column) into a Position with
// a UTF-16 column.
func positionOf(source []byte, offset uint, point sitter.Point) Position {
	pos := Position{
		Line:   int(point.Row) + 1,
		Column: int(point.Column),
		Offset: int(offset),
	}
	if offset > uint(len(source)) || point.Column > offset {
		return pos
	}
	lineStart := offset - point.Column
	pos.Column = utf16Len(source[lineStart:offset])
	return pos
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

func locationOf(node *sitter.Node, source []byte) *SourceLocation {
	if node == nil || node.IsMissing() {
		return nil
	}
	if node.EndByte() > uint(len(source)) {
		return nil
	}
	return &SourceLocation{
		Start: positionOf(source, node.StartByte(), node.StartPosition()),
		End:   positionOf(source, node.EndByte(), node.EndPosition()),
	}
}

// stringValue decodes a plain string literal. Template strings and any other
// node kind are rejected.
func stringValue(node *sitter.Node, source []byte) (string, bool) {
	if node == nil || node.Kind() != kindString {
		return "", false
	}
	var b strings.Builder
	for i := uint(0); i < node.NamedChildCount(); i++ {
		part := node.NamedChild(i)
		switch part.Kind() {
		case kindStringFragment:
			b.WriteString(nodeText(part, source))
		case kindEscapeSequence:
			seq := nodeText(part, source)
			if i+1 < node.NamedChildCount() {
				if r, ok := surrogatePair(seq, nodeText(node.NamedChild(i+1), source)); ok {
					b.WriteRune(r)
					i++
					continue
				}
			}
			b.WriteString(decodeEscape(seq))
		default:
			b.WriteString(nodeText(part, source))
		}
	}
	return b.String(), true
}

// surrogatePair joins a \uXXXX high surrogate escape with the low surrogate
// escape that follows it.
func surrogatePair(hi, lo string) (rune, bool) {
	r1, ok1 := surrogateEscape(hi)
	r2, ok2 := surrogateEscape(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	r := utf16.DecodeRune(r1, r2)
	return r, r != utf8.RuneError
}

func surrogateEscape(seq string) (rune, bool) {
	if len(seq) != 6 || !strings.HasPrefix(seq, `\u`) {
		return 0, false
	}
	v, err := strconv.ParseUint(seq[2:], 16, 16)
	if err != nil || !utf16.IsSurrogate(rune(v)) {
		return 0, false
	}
	return rune(v), true
}

func decodeEscape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	body := seq[1:]
	switch body[0] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '0':
		if len(body) == 1 {
			return "\x00"
		}
	case '\n', '\r':
		// Line continuation.
		return ""
	case 'x':
		if v, err := strconv.ParseUint(body[1:], 16, 8); err == nil {
			return string(rune(v))
		}
	case 'u':
		hex := strings.TrimSuffix(strings.TrimPrefix(body[1:], "{"), "}")
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return string(rune(v))
		}
	}
	return body
}

// identifierName returns the text of a bare identifier key.
func identifierName(key *sitter.Node, source []byte) string {
	if key == nil || key.Kind() != kindPropertyIdentifier {
		return ""
	}
	return nodeText(key, source)
}

// propertyName derives an entry name from an object key. Identifier keys,
// plain string keys and a bracketed identifier or string are accepted; other
// computed, numeric and private keys are not.
func propertyName(key *sitter.Node, source []byte) (string, bool) {
	if key == nil {
		return "", false
	}
	switch key.Kind() {
	case kindPropertyIdentifier, kindIdentifier, kindShorthandProperty:
		name := nodeText(key, source)
		return name, name != ""
	case kindString:
		name, ok := stringValue(key, source)
		return name, ok && name != ""
	case kindComputedProperty:
		inner := namedChildren(key)
		if len(inner) != 1 {
			return "", false
		}
		switch inner[0].Kind() {
		case kindIdentifier, kindString:
			return propertyName(inner[0], source)
		}
		return "", false
	default:
		return "", false
	}
}
