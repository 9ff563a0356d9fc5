package approval

import (
	"net/http"

	"collaborative-review-editor/internal/change"
	"collaborative-review-editor/internal/errors"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	workflow *Workflow
	changes  change.Service
}

func NewHandler(workflow *Workflow, changes change.Service) *Handler {
	return &Handler{workflow: workflow, changes: changes}
}

type SetStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// SetStatus decides a pending change. An optional comment is attached after
// the decision.
func (h *Handler) SetStatus(c *gin.Context) {
	var form SetStatusRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	userName := c.GetString("user_name")
	changeID := c.Param("id")

	var decided *change.Change
	var err error
	switch form.Status {
	case string(change.StatusApproved):
		decided, err = h.workflow.Approve(c.Request.Context(), changeID, userID.(uint64))
	case string(change.StatusRejected):
		decided, err = h.workflow.Reject(c.Request.Context(), changeID, userID.(uint64))
	default:
		c.Error(errors.BadRequest("Status must be 'approved' or 'rejected'", nil))
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	if form.Comment != "" {
		if _, err := h.changes.AddComment(c.Request.Context(), changeID, userID.(uint64), userName, form.Comment); err != nil {
			c.Error(err)
			return
		}
	}

	c.JSON(http.StatusOK, decided)
}

// Undo returns a decided change to pending, reversing its buffer mutation.
func (h *Handler) Undo(c *gin.Context) {
	undone, err := h.workflow.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, undone)
}
