package approval

import (
	"context"

	"collaborative-review-editor/internal/change"
	"collaborative-review-editor/internal/room"
	"collaborative-review-editor/internal/worker"
)

// Notifier relays decision events to the document's live editors.
type Notifier interface {
	Notify(documentID string, eventType string, data map[string]interface{})
}

// Workflow orchestrates the ledger, the diff revert and the room relay for
// accept/reject/undo. The buffer mutation always completes before the status
// flip (the ledger enforces that ordering), so a crash mid-sequence leaves
// the change pending, never silently decided without effect.
type Workflow struct {
	changes  change.Service
	notifier Notifier
	pool     *worker.WorkerPool
}

func NewWorkflow(changes change.Service, notifier Notifier, pool *worker.WorkerPool) *Workflow {
	return &Workflow{
		changes:  changes,
		notifier: notifier,
		pool:     pool,
	}
}

func (w *Workflow) Approve(ctx context.Context, changeID string, approverID uint64) (*change.Change, error) {
	c, err := w.changes.Approve(ctx, changeID, approverID)
	if err != nil {
		return nil, err
	}
	w.broadcastStatus(c)
	return c, nil
}

func (w *Workflow) Reject(ctx context.Context, changeID string, rejecterID uint64) (*change.Change, error) {
	c, err := w.changes.Reject(ctx, changeID, rejecterID)
	if err != nil {
		return nil, err
	}
	w.broadcastStatus(c)
	return c, nil
}

func (w *Workflow) Undo(ctx context.Context, changeID string) (*change.Change, error) {
	c, err := w.changes.Undo(ctx, changeID)
	if err != nil {
		return nil, err
	}
	w.broadcastStatus(c)
	return c, nil
}

// broadcastStatus rides the worker pool: a relay failure must never undo a
// decision that is already persisted.
func (w *Workflow) broadcastStatus(c *change.Change) {
	documentID := c.DocumentID
	data := map[string]interface{}{
		"changeId": c.ID,
		"field":    c.Field,
		"status":   string(c.Status),
	}
	w.pool.Submit(func(ctx context.Context) error {
		w.notifier.Notify(documentID, room.EventStatusChanged, data)
		return nil
	})
}
