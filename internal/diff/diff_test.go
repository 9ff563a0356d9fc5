package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff_InsertedWord(t *testing.T) {
	engine := NewEngine(120)

	segments := engine.Diff("The quick fox", "The quick brown fox")

	assert.Equal(t, []Segment{
		{Kind: KindEqual, Text: "The quick "},
		{Kind: KindInsert, Text: "brown "},
		{Kind: KindEqual, Text: "fox"},
	}, segments)
}

func TestDiff_RoundTrip(t *testing.T) {
	engine := NewEngine(120)

	cases := []struct {
		name     string
		old, new string
	}{
		{"insertion", "The quick fox", "The quick brown fox"},
		{"deletion", "The quick brown fox", "The quick fox"},
		{"replacement", "I have a cat", "I have a dog"},
		{"empty old", "", "hello world"},
		{"empty new", "hello world", ""},
		{"disjoint", "abc", "xyz"},
		{"repeated words", "a b a b a", "b a b a b"},
		{"unicode", "héllo wörld", "héllo there wörld"},
		{"long text word mode", strings.Repeat("lorem ipsum dolor ", 20), strings.Repeat("lorem ipsum dolor ", 10) + "sit amet " + strings.Repeat("lorem ipsum dolor ", 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments := engine.Diff(tc.old, tc.new)
			assert.Equal(t, tc.old, OldText(segments))
			assert.Equal(t, tc.new, NewText(segments))
		})
	}
}

func TestDiff_Deterministic(t *testing.T) {
	engine := NewEngine(120)

	first := engine.Diff("shared prefix then cat", "shared prefix then dog")
	for range 10 {
		assert.Equal(t, first, engine.Diff("shared prefix then cat", "shared prefix then dog"))
	}
}

func TestDiff_IdenticalTexts(t *testing.T) {
	engine := NewEngine(120)

	assert.Equal(t, []Segment{{Kind: KindEqual, Text: "same"}}, engine.Diff("same", "same"))
	assert.Empty(t, engine.Diff("", ""))
}

func TestDiff_WordModeKeepsWhitespaceTokens(t *testing.T) {
	engine := NewEngine(10) // force word mode

	segments := engine.Diff("alpha  beta gamma", "alpha  beta delta gamma")

	assert.Equal(t, "alpha  beta gamma", OldText(segments))
	assert.Equal(t, "alpha  beta delta gamma", NewText(segments))
	// the double space survives as its own token inside an equal run
	assert.Equal(t, KindEqual, segments[0].Kind)
	assert.Contains(t, segments[0].Text, "alpha  beta")
}

func TestRevert_ReplacesNewValue(t *testing.T) {
	engine := NewEngine(120)

	buffer, reverted := engine.Revert("The quick fox", "The quick brown fox", "The quick brown fox")

	assert.True(t, reverted)
	assert.Equal(t, "The quick fox", buffer)
}

func TestRevert_PartialBuffer(t *testing.T) {
	engine := NewEngine(120)

	buffer, reverted := engine.Revert("cat", "dog", "I have a dog")

	assert.True(t, reverted)
	assert.Equal(t, "I have a cat", buffer)
}

func TestRevert_MissingNewValueIsNoOp(t *testing.T) {
	engine := NewEngine(120)

	buffer, reverted := engine.Revert("cat", "dog", "I have a bird")

	assert.False(t, reverted)
	assert.Equal(t, "I have a bird", buffer)
}

func TestRevert_EmptyNewValueAppendsAtEnd(t *testing.T) {
	engine := NewEngine(120)

	buffer, reverted := engine.Revert(" tail", "", "document body")

	assert.True(t, reverted)
	assert.Equal(t, "document body tail", buffer)
}
