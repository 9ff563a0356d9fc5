package diff

import (
	"strings"
	"unicode"
)

type Kind string

const (
	KindEqual  Kind = "equal"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

// Segment is one run of a diff. Concatenating equal+delete segments
// reproduces the old text; concatenating equal+insert reproduces the new one.
type Segment struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Engine computes token-level diffs over plain text. Texts at or under
// wordThreshold bytes are diffed character-by-character; longer texts
// word-by-word, with whitespace runs kept as their own tokens.
type Engine struct {
	wordThreshold int
}

func NewEngine(wordThreshold int) *Engine {
	return &Engine{wordThreshold: wordThreshold}
}

func (e *Engine) Diff(oldText, newText string) []Segment {
	if oldText == newText {
		if oldText == "" {
			return []Segment{}
		}
		return []Segment{{Kind: KindEqual, Text: oldText}}
	}

	var oldTokens, newTokens []string
	if len(oldText) <= e.wordThreshold && len(newText) <= e.wordThreshold {
		oldTokens = splitChars(oldText)
		newTokens = splitChars(newText)
	} else {
		oldTokens = splitWords(oldText)
		newTokens = splitWords(newText)
	}

	return diffTokens(oldTokens, newTokens)
}

// Revert undoes a change whose effect was oldValue -> newValue by locating
// newValue as a contiguous run in buffer and replacing it with oldValue.
// An empty newValue (undoing a pure insertion) appends oldValue at the end
// of the buffer; there is no better anchor without cursor information.
// Returns the (possibly unchanged) buffer and whether anything was reverted.
func (e *Engine) Revert(oldValue, newValue, buffer string) (string, bool) {
	if newValue == "" {
		return buffer + oldValue, true
	}

	idx := strings.Index(buffer, newValue)
	if idx < 0 {
		// Never mutate unrelated text when the expected run is gone.
		return buffer, false
	}

	return buffer[:idx] + oldValue + buffer[idx+len(newValue):], true
}

func splitChars(s string) []string {
	runes := []rune(s)
	tokens := make([]string, len(runes))
	for i, r := range runes {
		tokens[i] = string(r)
	}
	return tokens
}

// splitWords breaks text into alternating runs of whitespace and
// non-whitespace, each run its own token.
func splitWords(s string) []string {
	var tokens []string
	var current strings.Builder
	currentIsSpace := false

	for _, r := range s {
		isSpace := unicode.IsSpace(r)
		if current.Len() > 0 && isSpace != currentIsSpace {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		currentIsSpace = isSpace
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// diffTokens runs an LCS dynamic program and walks it front-to-back.
// Tie-breaking is fixed: when insert and delete score equally, the insert
// wins, so repeated calls on identical inputs are byte-identical.
func diffTokens(oldTokens, newTokens []string) []Segment {
	n, m := len(oldTokens), len(newTokens)

	// dp[i][j] = LCS length of oldTokens[i:] and newTokens[j:]
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldTokens[i] == newTokens[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i][j+1] >= dp[i+1][j] {
				dp[i][j] = dp[i][j+1]
			} else {
				dp[i][j] = dp[i+1][j]
			}
		}
	}

	var segments []Segment
	appendRun := func(kind Kind, text string) {
		if text == "" {
			return
		}
		if len(segments) > 0 && segments[len(segments)-1].Kind == kind {
			segments[len(segments)-1].Text += text
			return
		}
		segments = append(segments, Segment{Kind: kind, Text: text})
	}

	i, j := 0, 0
	for i < n && j < m {
		if oldTokens[i] == newTokens[j] {
			appendRun(KindEqual, oldTokens[i])
			i++
			j++
		} else if dp[i][j+1] >= dp[i+1][j] {
			appendRun(KindInsert, newTokens[j])
			j++
		} else {
			appendRun(KindDelete, oldTokens[i])
			i++
		}
	}
	for ; i < n; i++ {
		appendRun(KindDelete, oldTokens[i])
	}
	for ; j < m; j++ {
		appendRun(KindInsert, newTokens[j])
	}

	return segments
}

// OldText reconstructs the pre-image of a diff.
func OldText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Kind == KindEqual || s.Kind == KindDelete {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// NewText reconstructs the post-image of a diff.
func NewText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Kind == KindEqual || s.Kind == KindInsert {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
