package change

import (
	"collaborative-review-editor/internal/errors"
	"collaborative-review-editor/internal/utils"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateChangeRequest struct {
	Field         string  `json:"field" binding:"required,min=1,max=128"`
	OldValue      string  `json:"oldValue"`
	NewValue      string  `json:"newValue"`
	RichTextOld   *string `json:"richTextOld"`
	RichTextNew   *string `json:"richTextNew"`
	IsIncremental bool    `json:"isIncremental"`
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateChangeRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	userName := c.GetString("user_name")

	created, err := h.service.Create(c.Request.Context(), CreateParams{
		DocumentID:    c.Param("id"),
		Field:         form.Field,
		OldValue:      form.OldValue,
		NewValue:      form.NewValue,
		RichTextOld:   form.RichTextOld,
		RichTextNew:   form.RichTextNew,
		AuthorID:      userID.(uint64),
		AuthorName:    userName,
		IsIncremental: form.IsIncremental,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.Error(err)
		return
	}

	changes, stats, err := h.service.List(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": changes, "stats": stats})
}

type AddCommentRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

func (h *Handler) AddComment(c *gin.Context) {
	var form AddCommentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")
	userName := c.GetString("user_name")

	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), userID.(uint64), userName, form.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func parseFilter(c *gin.Context) (Filter, error) {
	var filter Filter

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, errors.BadRequest("Invalid 'from' timestamp", err)
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, errors.BadRequest("Invalid 'to' timestamp", err)
		}
		filter.To = &t
	}
	if author := c.Query("authorId"); author != "" {
		id, err := strconv.ParseUint(author, 10, 64)
		if err != nil {
			return filter, errors.BadRequest("Invalid 'authorId'", err)
		}
		filter.AuthorID = &id
	}
	filter.Page, filter.PerPage = utils.GetPaginationParams(c)
	return filter, nil
}
