package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText_FlattensParagraphs(t *testing.T) {
	doc := []byte(`{
		"type": "doc",
		"content": [
			{"type": "paragraph", "content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "world"}]},
			{"type": "paragraph", "content": [{"type": "text", "text": "Second line"}]}
		]
	}`)

	assert.Equal(t, "Hello world\nSecond line", PlainText(doc))
}

func TestPlainText_UnknownNodesKeepChildren(t *testing.T) {
	doc := []byte(`{
		"type": "doc",
		"content": [
			{"type": "custom_widget", "content": [{"type": "text", "text": "inside"}]}
		]
	}`)

	assert.Equal(t, "inside", PlainText(doc))
}

func TestPlainText_NonJSONPassthrough(t *testing.T) {
	assert.Equal(t, "just plain text", PlainText([]byte("just plain text")))
	assert.Equal(t, "", PlainText(nil))
}
