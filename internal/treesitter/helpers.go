package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/controlvector/cv-engine/internal/parser"
)

// getNodeText extracts text from a node using byte offsets.
func getNodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	return string(code[start:end])
}

func line1(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func endLine1(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// findAncestorOfKind walks up from node looking for the nearest ancestor
// whose Kind() is one of kinds, stopping at stop (exclusive) if stop != nil.
func findAncestorOfKind(node *sitter.Node, stop *sitter.Node, kinds map[string]bool) *sitter.Node {
	current := node.Parent()
	for current != nil && current != stop {
		if kinds[current.Kind()] {
			return current
		}
		current = current.Parent()
	}
	return nil
}

// chunkFor builds a parser.Chunk spanning node's full source range.
func chunkFor(path, symbolName string, node *sitter.Node, code []byte) parser.Chunk {
	start, end := line1(node), endLine1(node)
	return parser.Chunk{
		ID:         chunkID(path, start, end),
		StartLine:  start,
		EndLine:    end,
		Text:       getNodeText(node, code),
		SymbolName: symbolName,
	}
}

func chunkID(path string, start, end int) string {
	return path + ":" + itoa(start) + ":" + itoa(end)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	buf := [12]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// walkCalls collects call expressions inside body, reporting each callee's
// short name, its 1-based line, and whether it sits beneath a conditional
// construct (per conditionalKinds) between itself and body.
func walkCalls(body *sitter.Node, code []byte, callKind string, conditionalKinds map[string]bool, calleeName func(call *sitter.Node, code []byte) string) []parser.CallRef {
	var calls []parser.CallRef
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == callKind {
			if name := calleeName(n, code); name != "" {
				calls = append(calls, parser.CallRef{
					Callee:        name,
					Line:          line1(n),
					IsConditional: findAncestorOfKind(n, body, conditionalKinds) != nil,
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return calls
}
