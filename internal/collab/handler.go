package collab

import (
	"encoding/json"
	"net/http"

	"collaborative-review-editor/internal/errors"
	"collaborative-review-editor/internal/richtext"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type EditRequest struct {
	Content  string `json:"content"`
	RichText json.RawMessage `json:"richText,omitempty"`
}

// Edit accepts one editor's buffer snapshot. Rich-text payloads are
// projected onto plain text before the coordinator sees them.
func (h *Handler) Edit(c *gin.Context) {
	var form EditRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	content := form.Content
	if len(form.RichText) > 0 {
		content = richtext.PlainText(form.RichText)
	}

	userID, _ := c.Get("user_id")
	userName := c.GetString("user_name")

	h.manager.Edit(c.Param("id"), userID.(uint64), userName, content)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
