package richtext

import (
	"encoding/json"
	"strings"
)

// Node is a node in a ProseMirror-style document tree.
type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Content []Node `json:"content"`
}

var blockTypes = map[string]bool{
	"paragraph":       true,
	"heading":         true,
	"blockquote":      true,
	"list_item":       true,
	"listItem":        true,
	"code_block":      true,
	"codeBlock":       true,
	"horizontal_rule": true,
}

// PlainText projects a rich-text JSON document onto the plain text the diff
// engine operates on. Unknown node types contribute only their children, so
// schema additions degrade gracefully.
func PlainText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		// Not rich-text JSON; treat the payload as already-plain text.
		return string(raw)
	}

	var b strings.Builder
	flatten(root, &b)
	return strings.TrimRight(b.String(), "\n")
}

func flatten(node Node, b *strings.Builder) {
	if node.Type == "text" || node.Text != "" {
		b.WriteString(node.Text)
		return
	}

	if node.Type == "hard_break" || node.Type == "hardBreak" {
		b.WriteString("\n")
		return
	}

	for _, child := range node.Content {
		flatten(child, b)
	}

	if blockTypes[node.Type] {
		b.WriteString("\n")
	}
}
