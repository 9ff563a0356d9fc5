package change

import (
	"collaborative-review-editor/internal/content"
	"collaborative-review-editor/internal/diff"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// mock implementation of the ChangeRepository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, change *Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*Change, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Change), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, change *Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, documentID string, filter Filter) ([]Change, error) {
	args := m.Called(ctx, documentID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Change), args.Error(1)
}

func (m *MockRepository) CountByStatus(ctx context.Context, documentID string, filter Filter) (Stats, error) {
	args := m.Called(ctx, documentID, filter)
	return args.Get(0).(Stats), args.Error(1)
}

func (m *MockRepository) CreateComment(ctx context.Context, comment *ChangeComment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

// mock implementation of the content.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newTestService(repo *MockRepository, store *MockStore) Service {
	return NewService(repo, store, diff.NewEngine(120), nil)
}

func pendingChange(id, docID, oldValue, newValue string) *Change {
	return &Change{
		ID:         id,
		DocumentID: docID,
		Field:      FieldContent,
		OldValue:   oldValue,
		NewValue:   newValue,
		AuthorID:   1,
		AuthorName: "alice",
		Timestamp:  time.Now().UTC(),
		Status:     StatusPending,
	}
}

func TestCreateChange_Success(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *Change) bool {
		return c.DocumentID == "doc-1" && c.Status == StatusPending && c.ID != ""
	})).Return(nil)

	c, err := service.Create(context.Background(), CreateParams{
		DocumentID: "doc-1",
		Field:      FieldContent,
		OldValue:   "",
		NewValue:   "Hello",
		AuthorID:   1,
		AuthorName: "alice",
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, c.Status)
	repo.AssertExpectations(t)
}

func TestCreateChange_MissingField(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	_, err := service.Create(context.Background(), CreateParams{DocumentID: "doc-1"})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create")
}

func TestApprove_WritesCanonicalBeforeStatusFlip(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "old text", "new text")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Put", mock.Anything, content.CanonicalKey("doc-1"), "new text").Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(updated *Change) bool {
		return updated.Status == StatusApproved && updated.ApproverID != nil && *updated.ApproverID == uint64(7)
	})).Return(nil)

	approved, err := service.Approve(context.Background(), "chg-1", 7)

	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestApprove_AlreadyDecided(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "old", "new")
	c.Status = StatusApproved
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)

	_, err := service.Approve(context.Background(), "chg-1", 7)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateStatus")
	store.AssertNotCalled(t, "Put")
}

func TestApprove_StoreFailureLeavesChangePending(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "old", "new")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Put", mock.Anything, content.CanonicalKey("doc-1"), "new").Return(assert.AnError)

	_, err := service.Approve(context.Background(), "chg-1", 7)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestReject_RevertsProposedBuffer(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "I have a dog", "I have a cat")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Get", mock.Anything, content.ProposedKey("doc-1")).Return("I have a cat", nil)
	store.On("Put", mock.Anything, content.ProposedKey("doc-1"), "I have a dog").Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(updated *Change) bool {
		return updated.Status == StatusRejected && updated.RejecterID != nil && *updated.RejecterID == uint64(9)
	})).Return(nil)

	rejected, err := service.Reject(context.Background(), "chg-1", 9)

	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	store.AssertExpectations(t)
}

func TestReject_FallsBackToCanonicalBuffer(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "dog", "cat")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Get", mock.Anything, content.ProposedKey("doc-1")).Return("", gorm.ErrRecordNotFound)
	store.On("Get", mock.Anything, content.CanonicalKey("doc-1")).Return("the cat sat", nil)
	store.On("Put", mock.Anything, content.ProposedKey("doc-1"), "the dog sat").Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)

	_, err := service.Reject(context.Background(), "chg-1", 9)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestReject_DivergedRevertStillFlipsStatus(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	// The buffer no longer contains the new value; nothing is reverted but
	// the change is still rejected.
	c := pendingChange("chg-1", "doc-1", "dog", "cat")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Get", mock.Anything, content.ProposedKey("doc-1")).Return("completely different", nil)
	repo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(updated *Change) bool {
		return updated.Status == StatusRejected
	})).Return(nil)

	rejected, err := service.Reject(context.Background(), "chg-1", 9)

	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	store.AssertNotCalled(t, "Put")
}

func TestUndo_ApprovedRestoresCanonical(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	approverID := uint64(7)
	c := pendingChange("chg-1", "doc-1", "old line", "new line")
	c.Status = StatusApproved
	c.ApproverID = &approverID

	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Get", mock.Anything, content.CanonicalKey("doc-1")).Return("new line", nil)
	store.On("Put", mock.Anything, content.CanonicalKey("doc-1"), "old line").Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(updated *Change) bool {
		return updated.Status == StatusPending && updated.ApproverID == nil
	})).Return(nil)

	undone, err := service.Undo(context.Background(), "chg-1")

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, undone.Status)
	assert.Nil(t, undone.ApproverID)
}

func TestUndo_RejectedReappliesNewValue(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	rejecterID := uint64(9)
	c := pendingChange("chg-1", "doc-1", "dog", "cat")
	c.Status = StatusRejected
	c.RejecterID = &rejecterID

	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	store.On("Get", mock.Anything, content.ProposedKey("doc-1")).Return("I have a dog", nil)
	store.On("Put", mock.Anything, content.ProposedKey("doc-1"), "I have a cat").Return(nil)
	repo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(updated *Change) bool {
		return updated.Status == StatusPending && updated.RejecterID == nil
	})).Return(nil)

	undone, err := service.Undo(context.Background(), "chg-1")

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, undone.Status)
	assert.Nil(t, undone.RejecterID)
}

func TestUndo_PendingIsRejected(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "a", "b")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)

	_, err := service.Undo(context.Background(), "chg-1")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateStatus")
}

func TestConsolidate_SkipsIdenticalTexts(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c, err := service.Consolidate(context.Background(), "doc-1", "same", "same", 1, "alice", time.Now())

	assert.NoError(t, err)
	assert.Nil(t, c)
	repo.AssertNotCalled(t, "Create")
	store.AssertNotCalled(t, "Put")
}

func TestConsolidate_RecordsWindowAsSingleChange(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	periodStart := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *Change) bool {
		return c.OldValue == "Hello" &&
			c.NewValue == "Hello world!" &&
			c.Timestamp.Equal(periodStart) &&
			!c.IsIncremental
	})).Return(nil)
	store.On("Put", mock.Anything, content.ProposedKey("doc-1"), "Hello world!").Return(nil)

	c, err := service.Consolidate(context.Background(), "doc-1", "Hello", "Hello world!", 1, "alice", periodStart)

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, c.Status)
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestGet_NotFound(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	repo.On("FindByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := service.Get(context.Background(), "missing")

	assert.Error(t, err)
}

func TestAddComment_EmptyBody(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	_, err := service.AddComment(context.Background(), "chg-1", 1, "alice", "")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateComment")
}

func TestAddComment_Success(t *testing.T) {
	repo := new(MockRepository)
	store := new(MockStore)
	service := newTestService(repo, store)

	c := pendingChange("chg-1", "doc-1", "a", "b")
	repo.On("FindByID", mock.Anything, "chg-1").Return(c, nil)
	repo.On("CreateComment", mock.Anything, mock.MatchedBy(func(comment *ChangeComment) bool {
		return comment.ChangeID == "chg-1" && comment.Content == "looks good"
	})).Return(nil)

	comment, err := service.AddComment(context.Background(), "chg-1", 2, "bob", "looks good")

	assert.NoError(t, err)
	assert.Equal(t, "bob", comment.AuthorName)
	repo.AssertExpectations(t)
}
