package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// LocateCandidates returns the object literals among program's top-level
// statements that may be model definitions, in source order. Call arguments
// keep argument order. Unrecognised statements are skipped.
func LocateCandidates(program *sitter.Node) []*sitter.Node {
	var candidates []*sitter.Node
	for _, stmt := range namedChildren(program) {
		node := unwrapStatement(stmt)
		if node == nil {
			continue
		}

		switch node.Kind() {
		case kindObject:
			candidates = append(candidates, node)
		case kindCallExpression:
			for _, arg := range namedChildren(node.ChildByFieldName(fieldArguments)) {
				if arg = unwrapParens(arg); arg != nil && arg.Kind() == kindObject {
					candidates = append(candidates, arg)
				}
			}
		case kindAsExpression:
			// Taken as-is; ExtractModel rejects anything that is not shaped
			// like an object literal.
			if inner := unwrapParens(firstNamedChild(node)); inner != nil {
				candidates = append(candidates, inner)
			}
		default:
			// Not a model shape.
		}
	}
	return candidates
}

// unwrapStatement strips the statement wrappers tree-sitter puts around an
// expression: `export default <expr>` yields <expr>, and a bare expression
// statement yields its expression. Named exports are not model shapes.
func unwrapStatement(stmt *sitter.Node) *sitter.Node {
	switch stmt.Kind() {
	case kindExportStatement:
		if !hasDefaultKeyword(stmt) {
			return nil
		}
		inner := stmt.ChildByFieldName(fieldValue)
		if inner == nil {
			inner = stmt.ChildByFieldName(fieldDeclaration)
		}
		return unwrapParens(inner)
	case kindExpressionStatement:
		return unwrapParens(firstNamedChild(stmt))
	default:
		return unwrapParens(stmt)
	}
}

func hasDefaultKeyword(stmt *sitter.Node) bool {
	for i := uint(0); i < stmt.ChildCount(); i++ {
		if child := stmt.Child(i); child != nil && child.Kind() == kindDefaultKeyword {
			return true
		}
	}
	return false
}
