package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"modgraph/internal/engine/graph"
)

var functionKinds = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
	"class":                          true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
}

var decisionKinds = map[string]bool{
	"if_statement":       true,
	"while_statement":    true,
	"do_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"switch_case":        true,
	"switch_default":     true,
	"catch_clause":       true,
	"ternary_expression": true,
}

var nestingKinds = map[string]bool{
	"if_statement":     true,
	"while_statement":  true,
	"do_statement":     true,
	"for_statement":    true,
	"for_in_statement": true,
	"switch_statement": true,
	"try_statement":    true,
}

func functionQuality(source []byte, fn *sitter.Node) graph.SymbolMetadata {
	lines, complexity, nesting, returns := 1, 1, 0, 0
	params := 0
	if p := fn.ChildByFieldName("parameters"); p != nil {
		params = len(namedChildren(p))
	} else if fn.ChildByFieldName("parameter") != nil {
		params = 1
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		lines = lineCount(body)
		complexity += decisionPoints(source, body)
		nesting = maxNesting(body, 0)
		returns = countReturns(body)
	}
	return graph.CodeQualityMeta(graph.CodeQualityMetadata{
		LineCount:       &lines,
		ParameterCount:  &params,
		Complexity:      &complexity,
		MaxNestingDepth: &nesting,
		ReturnCount:     &returns,
	})
}

func classQuality(class *sitter.Node) graph.SymbolMetadata {
	lines := lineCount(class)
	methods, fields := 0, 0
	for _, member := range namedChildren(class.ChildByFieldName("body")) {
		switch member.Kind() {
		case "method_definition", "abstract_method_signature":
			methods++
		case "field_definition", "public_field_definition":
			fields++
		}
	}
	return graph.CodeQualityMeta(graph.CodeQualityMetadata{
		LineCount:   &lines,
		MethodCount: &methods,
		FieldCount:  &fields,
	})
}

func lineCount(node *sitter.Node) int {
	return int(node.EndPosition().Row-node.StartPosition().Row) + 1
}

// decisionPoints counts branches, loops, cases, catches, ternaries and
// short-circuit operators, without entering nested functions.
func decisionPoints(source []byte, node *sitter.Node) int {
	n := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		kind := child.Kind()
		if functionKinds[kind] {
			continue
		}
		if decisionKinds[kind] {
			n++
		}
		if kind == "binary_expression" {
			switch nodeText(source, child.ChildByFieldName("operator")) {
			case "&&", "||", "??":
				n++
			}
		}
		n += decisionPoints(source, child)
	}
	return n
}

// maxNesting returns the deepest control-flow nesting below node. An
// `else if` stays at the depth of its chain.
func maxNesting(node *sitter.Node, depth int) int {
	deepest := depth
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		kind := child.Kind()
		if functionKinds[kind] {
			continue
		}
		next := depth
		if nestingKinds[kind] && !(kind == "if_statement" && node.Kind() == "else_clause") {
			next++
		}
		if d := maxNesting(child, next); d > deepest {
			deepest = d
		}
	}
	return deepest
}

func countReturns(node *sitter.Node) int {
	n := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if functionKinds[child.Kind()] {
			continue
		}
		if child.Kind() == "return_statement" {
			n++
		}
		n += countReturns(child)
	}
	return n
}
