package collab

import (
	"context"
	"log"
	"sync"
	"time"
)

// RealtimeSender receives the coalesced buffer once a throttle window
// elapses. Sends are fire-and-forget.
type RealtimeSender interface {
	SendRealtime(content string)
}

// Saver persists one auto-save window as a single consolidated change.
type Saver interface {
	SaveWindow(ctx context.Context, documentID string, authorID uint64, authorName string, periodStart, periodEnd string, startedAt time.Time) error
}

type applyState int

const (
	stateIdle applyState = iota
	stateApplyingRemote
)

// editSession tracks the buffer between two persisted states. It exists only
// while there are unsaved edits and is cleared on save, error, and init.
type editSession struct {
	periodStartContent string
	periodStartTime    time.Time
	hasChangesInPeriod bool
}

type Options struct {
	DocumentID     string
	AuthorID       uint64
	AuthorName     string
	Throttle       time.Duration // coalesce-latest realtime window
	Debounce       time.Duration // idle period before auto-save
	Sweep          time.Duration // fallback unsaved+idle check interval
	PreserveWindow time.Duration // drop preserve-tagged remotes after a local save
}

// Coordinator owns the authoritative local buffer for one active editor and
// runs its two cadences: the realtime path and the auto-save path. Conflict
// policy is last snapshot wins; there is no per-character merge.
type Coordinator struct {
	opts   Options
	sender RealtimeSender
	saver  Saver

	mu            sync.Mutex
	buffer        string
	session       *editSession
	state         applyState
	throttleTimer *time.Timer // non-nil while a send is scheduled
	debounceTimer *time.Timer
	lastEditAt    time.Time
	lastSaveAt    time.Time

	done chan struct{}
}

func NewCoordinator(opts Options, sender RealtimeSender, saver Saver, initialContent string) *Coordinator {
	c := &Coordinator{
		opts:   opts,
		sender: sender,
		saver:  saver,
		buffer: initialContent,
		done:   make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Buffer returns the current local buffer.
func (c *Coordinator) Buffer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// Edit records a local keystroke-level change to the whole buffer. While a
// remote snapshot is being applied the mutation's own change-detection lands
// here and is suppressed, which is what prevents echo ping-pong.
func (c *Coordinator) Edit(newContent string) {
	c.mu.Lock()

	if c.state == stateApplyingRemote {
		c.mu.Unlock()
		return
	}

	previous := c.buffer
	c.buffer = newContent
	c.lastEditAt = time.Now()

	if c.session == nil {
		c.session = &editSession{
			periodStartContent: previous,
			periodStartTime:    c.lastEditAt,
		}
	}
	c.session.hasChangesInPeriod = true

	// Coalesce-latest: only one scheduled send may be pending; newer edits
	// replace its payload rather than queueing a second send.
	if c.throttleTimer == nil {
		c.throttleTimer = time.AfterFunc(c.opts.Throttle, c.fireRealtime)
	}

	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.opts.Debounce, c.fireAutosave)

	c.mu.Unlock()
}

func (c *Coordinator) fireRealtime() {
	c.mu.Lock()
	c.throttleTimer = nil
	content := c.buffer
	c.mu.Unlock()

	c.sender.SendRealtime(content)
}

func (c *Coordinator) fireAutosave() {
	c.Save()
}

// Save consolidates the current unsaved window. Idempotent: when the
// debounce and the fallback sweep both fire, the second call finds no
// session and does nothing.
func (c *Coordinator) Save() {
	c.mu.Lock()
	if c.session == nil || !c.session.hasChangesInPeriod {
		c.mu.Unlock()
		return
	}

	periodStart := c.session.periodStartContent
	startedAt := c.session.periodStartTime
	periodEnd := c.buffer
	c.session = nil

	if periodStart == periodEnd {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.saver.SaveWindow(ctx, c.opts.DocumentID, c.opts.AuthorID, c.opts.AuthorName, periodStart, periodEnd, startedAt); err != nil {
		// Session is already cleared: a failed window is not retried with
		// stale boundaries, the next edit opens a fresh one.
		log.Printf("[INFO] coordinator %s: auto-save failed: %v", c.opts.DocumentID, err)
		return
	}

	c.mu.Lock()
	c.lastSaveAt = time.Now()
	c.mu.Unlock()
}

// ApplyRemote replaces the buffer with a remote snapshot. Returns false when
// the update was dropped by the preserve-editing policy.
func (c *Coordinator) ApplyRemote(content string, preserveEditing bool) bool {
	c.mu.Lock()

	if preserveEditing && !c.lastSaveAt.IsZero() && time.Since(c.lastSaveAt) < c.opts.PreserveWindow {
		c.mu.Unlock()
		return false
	}

	c.state = stateApplyingRemote
	c.buffer = content
	c.session = nil

	// A pending realtime send would echo the remote content straight back.
	if c.throttleTimer != nil {
		c.throttleTimer.Stop()
		c.throttleTimer = nil
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.mu.Unlock()

	// Clear on the next tick, after the mutation's change-detection has run.
	time.AfterFunc(0, func() {
		c.mu.Lock()
		c.state = stateIdle
		c.mu.Unlock()
	})
	return true
}

// sweepLoop is the fallback for a missed debounce: any unsaved window that
// has been idle past the debounce period gets force-saved.
func (c *Coordinator) sweepLoop() {
	ticker := time.NewTicker(c.opts.Sweep)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			unsavedIdle := c.session != nil &&
				c.session.hasChangesInPeriod &&
				time.Since(c.lastEditAt) >= c.opts.Debounce
			c.mu.Unlock()
			if unsavedIdle {
				c.Save()
			}
		}
	}
}

// Close stops the timers and saves any outstanding window.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.throttleTimer != nil {
		c.throttleTimer.Stop()
		c.throttleTimer = nil
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}

	c.Save()
}
