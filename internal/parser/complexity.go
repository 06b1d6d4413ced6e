package parser

import sitter "github.com/tree-sitter/go-tree-sitter"

// BranchKinds is the per-language set of tree-sitter node kinds that count as
// a branch point for cyclomatic complexity. Each treesitter extractor passes
// its own set into Complexity.
type BranchKinds map[string]bool

// Complexity computes cyclomatic complexity as 1 + the number of branching
// nodes in the subtree rooted at node, per spec: if/else-if, for/while/loop,
// case/match-arm, catch/except, and boolean &&/|| operators.
func Complexity(node *sitter.Node, branches BranchKinds) int {
	count := 1
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if branches[n.Kind()] {
			count++
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return count
}

var (
	// GoBranchKinds covers if_statement, for_statement, expression_switch's
	// case clauses, type_switch's cases, select's cases, and short-circuit
	// boolean expressions.
	GoBranchKinds = BranchKinds{
		"if_statement":          true,
		"for_statement":         true,
		"expression_case":       true,
		"type_case":             true,
		"communication_case":    true,
		"binary_expression":     false, // refined by extractor per operator
	}

	PythonBranchKinds = BranchKinds{
		"if_statement":      true,
		"elif_clause":       true,
		"for_statement":     true,
		"while_statement":   true,
		"except_clause":     true,
		"boolean_operator":  true,
		"conditional_expression": true,
	}

	JSBranchKinds = BranchKinds{
		"if_statement":         true,
		"for_statement":        true,
		"for_in_statement":     true,
		"while_statement":      true,
		"do_statement":         true,
		"switch_case":          true,
		"catch_clause":         true,
		"ternary_expression":   true,
		"binary_expression":    false,
	}

	RustBranchKinds = BranchKinds{
		"if_expression":     true,
		"if_let_expression":  true,
		"for_expression":    true,
		"while_expression":  true,
		"while_let_expression": true,
		"match_arm":         true,
		"binary_expression":  false,
	}

	JavaBranchKinds = BranchKinds{
		"if_statement":        true,
		"for_statement":       true,
		"enhanced_for_statement": true,
		"while_statement":     true,
		"do_statement":        true,
		"switch_label":        true,
		"catch_clause":        true,
		"ternary_expression":  true,
		"binary_expression":   false,
	}
)
