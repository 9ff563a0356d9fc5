package change

import (
	"collaborative-review-editor/internal/content"
	"context"
	defError "errors"
	"log"
	"time"

	"collaborative-review-editor/internal/diff"
	"collaborative-review-editor/internal/errors"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// FieldContent marks changes that target the document body; deciding one of
// these mutates the stored buffers.
const FieldContent = "content"

// Notifier relays ledger events to live editors. Implemented by the room
// registry; delivery is best-effort.
type Notifier interface {
	Notify(documentID string, eventType string, data map[string]interface{})
}

type CreateParams struct {
	DocumentID    string
	Field         string
	OldValue      string
	NewValue      string
	RichTextOld   *string
	RichTextNew   *string
	AuthorID      uint64
	AuthorName    string
	IsIncremental bool
}

type Service interface {
	Create(ctx context.Context, params CreateParams) (*Change, error)
	Get(ctx context.Context, changeID string) (*Change, error)
	Approve(ctx context.Context, changeID string, approverID uint64) (*Change, error)
	Reject(ctx context.Context, changeID string, rejecterID uint64) (*Change, error)
	Undo(ctx context.Context, changeID string) (*Change, error)
	Consolidate(ctx context.Context, documentID, periodOldText, periodNewText string, authorID uint64, authorName string, periodStart time.Time) (*Change, error)
	List(ctx context.Context, documentID string, filter Filter) ([]Change, Stats, error)
	AddComment(ctx context.Context, changeID string, authorID uint64, authorName, body string) (*ChangeComment, error)
}

type DefaultService struct {
	repository ChangeRepository
	store      content.Store
	engine     *diff.Engine
	notifier   Notifier
}

func NewService(
	repository ChangeRepository,
	store content.Store,
	engine *diff.Engine,
	notifier Notifier,
) Service {
	return &DefaultService{
		repository: repository,
		store:      store,
		engine:     engine,
		notifier:   notifier,
	}
}

func (s *DefaultService) Create(ctx context.Context, params CreateParams) (*Change, error) {
	if params.DocumentID == "" || params.Field == "" {
		return nil, errors.BadRequest("Document and field are required", nil)
	}

	c := &Change{
		ID:            ksuid.New().String(),
		DocumentID:    params.DocumentID,
		Field:         params.Field,
		OldValue:      params.OldValue,
		NewValue:      params.NewValue,
		RichTextOld:   params.RichTextOld,
		RichTextNew:   params.RichTextNew,
		AuthorID:      params.AuthorID,
		AuthorName:    params.AuthorName,
		Timestamp:     time.Now().UTC(),
		Status:        StatusPending,
		IsIncremental: params.IsIncremental,
	}

	if err := s.repository.Create(ctx, c); err != nil {
		return nil, errors.Internal(err)
	}
	return c, nil
}

func (s *DefaultService) Get(ctx context.Context, changeID string) (*Change, error) {
	return s.find(ctx, changeID)
}

func (s *DefaultService) Approve(ctx context.Context, changeID string, approverID uint64) (*Change, error) {
	c, err := s.find(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, errors.InvalidState("Change has already been decided", nil)
	}

	// Apply before flipping status: a crash here leaves the change pending.
	if c.Field == FieldContent {
		if err := s.store.Put(ctx, content.CanonicalKey(c.DocumentID), c.NewValue); err != nil {
			return nil, errors.Internal(err)
		}
	}

	c.Status = StatusApproved
	c.ApproverID = &approverID
	if err := s.repository.UpdateStatus(ctx, c); err != nil {
		return nil, errors.Internal(err)
	}
	return c, nil
}

func (s *DefaultService) Reject(ctx context.Context, changeID string, rejecterID uint64) (*Change, error) {
	c, err := s.find(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusPending {
		return nil, errors.InvalidState("Change has already been decided", nil)
	}

	// Revert the live proposed buffer and persist it before the status flip,
	// so a crash mid-sequence leaves the change pending rather than silently
	// rejected without effect.
	buffer, err := s.proposedBuffer(ctx, c.DocumentID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	reverted, ok := s.engine.Revert(c.OldValue, c.NewValue, buffer)
	if !ok {
		// Diverged revert: the expected text is gone. Corrupting shared
		// content is worse than a skipped revert.
		log.Printf("[INFO] change %s: revert diverged, nothing reverted (doc=%s)", c.ID, c.DocumentID)
	} else {
		if err := s.store.Put(ctx, content.ProposedKey(c.DocumentID), reverted); err != nil {
			return nil, errors.Internal(err)
		}
	}

	c.Status = StatusRejected
	c.RejecterID = &rejecterID
	if err := s.repository.UpdateStatus(ctx, c); err != nil {
		return nil, errors.Internal(err)
	}
	return c, nil
}

func (s *DefaultService) Undo(ctx context.Context, changeID string) (*Change, error) {
	c, err := s.find(ctx, changeID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case StatusApproved:
		// Take NewValue back out of the canonical text.
		if c.Field == FieldContent {
			buffer, err := s.store.Get(ctx, content.CanonicalKey(c.DocumentID))
			if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.Internal(err)
			}
			restored, ok := s.engine.Revert(c.OldValue, c.NewValue, buffer)
			if !ok {
				log.Printf("[INFO] change %s: undo-approve diverged, nothing reverted (doc=%s)", c.ID, c.DocumentID)
			} else if err := s.store.Put(ctx, content.CanonicalKey(c.DocumentID), restored); err != nil {
				return nil, errors.Internal(err)
			}
		}
		c.ApproverID = nil

	case StatusRejected:
		// Re-apply NewValue over the reverted proposed buffer.
		buffer, err := s.proposedBuffer(ctx, c.DocumentID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		restored, ok := s.engine.Revert(c.NewValue, c.OldValue, buffer)
		if !ok {
			log.Printf("[INFO] change %s: undo-reject diverged, nothing re-applied (doc=%s)", c.ID, c.DocumentID)
		} else if err := s.store.Put(ctx, content.ProposedKey(c.DocumentID), restored); err != nil {
			return nil, errors.Internal(err)
		}
		c.RejecterID = nil

	default:
		return nil, errors.InvalidState("Only decided changes can be undone", nil)
	}

	c.Status = StatusPending
	if err := s.repository.UpdateStatus(ctx, c); err != nil {
		return nil, errors.Internal(err)
	}
	return c, nil
}

// Consolidate turns one auto-save window into a single non-incremental
// change, so per-keystroke edits never individually enter the ledger.
func (s *DefaultService) Consolidate(ctx context.Context, documentID, periodOldText, periodNewText string, authorID uint64, authorName string, periodStart time.Time) (*Change, error) {
	if periodOldText == periodNewText {
		return nil, nil
	}

	c := &Change{
		ID:            ksuid.New().String(),
		DocumentID:    documentID,
		Field:         FieldContent,
		OldValue:      periodOldText,
		NewValue:      periodNewText,
		AuthorID:      authorID,
		AuthorName:    authorName,
		Timestamp:     periodStart,
		Status:        StatusPending,
		IsIncremental: false,
	}

	if err := s.repository.Create(ctx, c); err != nil {
		return nil, errors.Internal(err)
	}

	if err := s.store.Put(ctx, content.ProposedKey(documentID), periodNewText); err != nil {
		return nil, errors.Internal(err)
	}
	return c, nil
}

func (s *DefaultService) List(ctx context.Context, documentID string, filter Filter) ([]Change, Stats, error) {
	changes, err := s.repository.List(ctx, documentID, filter)
	if err != nil {
		return nil, Stats{}, errors.Internal(err)
	}

	stats, err := s.repository.CountByStatus(ctx, documentID, filter)
	if err != nil {
		return nil, Stats{}, errors.Internal(err)
	}
	return changes, stats, nil
}

func (s *DefaultService) AddComment(ctx context.Context, changeID string, authorID uint64, authorName, body string) (*ChangeComment, error) {
	if body == "" {
		return nil, errors.BadRequest("Comment content cannot be empty", nil)
	}

	c, err := s.find(ctx, changeID)
	if err != nil {
		return nil, err
	}

	comment := &ChangeComment{
		ID:         ksuid.New().String(),
		ChangeID:   c.ID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    body,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repository.CreateComment(ctx, comment); err != nil {
		return nil, errors.Internal(err)
	}

	if s.notifier != nil {
		s.notifier.Notify(c.DocumentID, "comment_added", map[string]interface{}{
			"changeId":   comment.ChangeID,
			"commentId":  comment.ID,
			"authorId":   comment.AuthorID,
			"authorName": comment.AuthorName,
			"content":    comment.Content,
		})
	}
	return comment, nil
}

func (s *DefaultService) find(ctx context.Context, changeID string) (*Change, error) {
	c, err := s.repository.FindByID(ctx, changeID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Change not found", err)
		}
		return nil, errors.Internal(err)
	}
	return c, nil
}

// proposedBuffer loads the live buffer under review, falling back to the
// canonical text when no proposal has been saved yet.
func (s *DefaultService) proposedBuffer(ctx context.Context, documentID string) (string, error) {
	buffer, err := s.store.Get(ctx, content.ProposedKey(documentID))
	if err == nil {
		return buffer, nil
	}
	if !defError.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	buffer, err = s.store.Get(ctx, content.CanonicalKey(documentID))
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	return buffer, nil
}
