package collab

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	mu    sync.Mutex
	sends []string
}

func (s *recordingSender) SendRealtime(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, content)
}

func (s *recordingSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sends...)
}

type savedWindow struct {
	documentID string
	authorID   uint64
	start      string
	end        string
}

type recordingSaver struct {
	mu      sync.Mutex
	windows []savedWindow
	err     error
}

func (s *recordingSaver) SaveWindow(ctx context.Context, documentID string, authorID uint64, authorName string, periodStart, periodEnd string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.windows = append(s.windows, savedWindow{
		documentID: documentID,
		authorID:   authorID,
		start:      periodStart,
		end:        periodEnd,
	})
	return nil
}

func (s *recordingSaver) all() []savedWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedWindow(nil), s.windows...)
}

func testOptions() Options {
	return Options{
		DocumentID:     "doc-1",
		AuthorID:       1,
		AuthorName:     "alice",
		Throttle:       30 * time.Millisecond,
		Debounce:       40 * time.Millisecond,
		Sweep:          time.Hour,
		PreserveWindow: time.Hour,
	}
}

func TestEdit_CoalescesRealtimeSends(t *testing.T) {
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(testOptions(), sender, saver, "")
	defer c.Close()

	c.Edit("H")
	c.Edit("He")
	c.Edit("Hello")

	assert.Eventually(t, func() bool {
		return len(sender.all()) > 0
	}, 2*time.Second, 5*time.Millisecond)

	// A burst inside one throttle window produces exactly one send,
	// carrying the latest buffer.
	time.Sleep(3 * c.opts.Throttle)
	sends := sender.all()
	assert.Len(t, sends, 1)
	assert.Equal(t, "Hello", sends[0])
}

func TestAutosave_ConsolidatesEditWindow(t *testing.T) {
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(testOptions(), sender, saver, "Hello")
	defer c.Close()

	c.Edit("Hello world")
	c.Edit("Hello world!")

	assert.Eventually(t, func() bool {
		return len(saver.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	window := saver.all()[0]
	assert.Equal(t, "doc-1", window.documentID)
	assert.Equal(t, uint64(1), window.authorID)
	assert.Equal(t, "Hello", window.start)
	assert.Equal(t, "Hello world!", window.end)
}

func TestSave_Idempotent(t *testing.T) {
	opts := testOptions()
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(opts, sender, saver, "a")
	defer c.Close()

	c.Edit("ab")
	c.Save()
	c.Save()

	assert.Len(t, saver.all(), 1)
}

func TestSave_SkipsUnchangedWindow(t *testing.T) {
	opts := testOptions()
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(opts, sender, saver, "same")
	defer c.Close()

	c.Edit("same")
	c.Save()

	assert.Empty(t, saver.all())
}

func TestSave_FailedWindowNotRetriedWithStaleBoundaries(t *testing.T) {
	opts := testOptions()
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{err: assert.AnError}
	c := NewCoordinator(opts, sender, saver, "v0")
	defer c.Close()

	c.Edit("v1")
	c.Save()
	c.Save()
	assert.Empty(t, saver.all())

	// The next edit opens a fresh window from the current buffer, not from
	// the failed window's start.
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	c.Edit("v2")
	c.Save()

	windows := saver.all()
	assert.Len(t, windows, 1)
	assert.Equal(t, "v1", windows[0].start)
	assert.Equal(t, "v2", windows[0].end)
}

func TestApplyRemote_ReplacesBufferWithoutEcho(t *testing.T) {
	opts := testOptions()
	opts.Throttle = time.Hour
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(opts, sender, saver, "")
	defer c.Close()

	c.Edit("local draft")

	applied := c.ApplyRemote("remote snapshot", false)

	assert.True(t, applied)
	assert.Equal(t, "remote snapshot", c.Buffer())

	// The pending realtime send and the open window were both cancelled.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sender.all())
	c.Save()
	assert.Empty(t, saver.all())
}

func TestApplyRemote_EditingResumesAfterApply(t *testing.T) {
	opts := testOptions()
	opts.Throttle = time.Hour
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(opts, sender, saver, "")
	defer c.Close()

	c.ApplyRemote("remote", false)

	// Suppression lasts one tick; after that local edits land again.
	assert.Eventually(t, func() bool {
		c.Edit("local again")
		return c.Buffer() == "local again"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestApplyRemote_PreserveWindowDropsAfterRecentSave(t *testing.T) {
	opts := testOptions()
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(opts, sender, saver, "v0")
	defer c.Close()

	c.Edit("v1")
	c.Save()
	assert.Len(t, saver.all(), 1)

	applied := c.ApplyRemote("remote", true)

	assert.False(t, applied)
	assert.Equal(t, "v1", c.Buffer())

	// Untagged snapshots still win.
	assert.True(t, c.ApplyRemote("remote", false))
	assert.Equal(t, "remote", c.Buffer())
}

func TestClose_FlushesOutstandingWindow(t *testing.T) {
	opts := testOptions()
	opts.Debounce = time.Hour
	sender := &recordingSender{}
	saver := &recordingSaver{}
	c := NewCoordinator(opts, sender, saver, "start")

	c.Edit("start plus edits")
	c.Close()

	windows := saver.all()
	assert.Len(t, windows, 1)
	assert.Equal(t, "start", windows[0].start)
	assert.Equal(t, "start plus edits", windows[0].end)
}

func TestManager_ApplyRemoteSkipsAuthor(t *testing.T) {
	base := testOptions()
	base.Throttle = time.Hour
	base.Debounce = time.Hour

	senders := map[uint64]*recordingSender{}
	factory := func(documentID string, userID uint64, userName string) RealtimeSender {
		s := &recordingSender{}
		senders[userID] = s
		return s
	}
	saver := &recordingSaver{}
	m := NewManager(base, factory, saver, func(documentID string) string { return "shared start" })
	defer m.CloseAll()

	m.Edit("doc-1", 1, "alice", "alice draft")
	m.Edit("doc-1", 2, "bob", "bob draft")
	m.Edit("doc-2", 3, "carol", "carol draft")

	m.ApplyRemote("doc-1", 1, "alice broadcast", false)

	assert.Equal(t, "alice draft", m.coordinator("doc-1", 1, "alice").Buffer())
	assert.Equal(t, "alice broadcast", m.coordinator("doc-1", 2, "bob").Buffer())
	assert.Equal(t, "carol draft", m.coordinator("doc-2", 3, "carol").Buffer())
}

func TestManager_CloseAllFlushesEveryEditor(t *testing.T) {
	base := testOptions()
	base.Throttle = time.Hour
	base.Debounce = time.Hour

	factory := func(documentID string, userID uint64, userName string) RealtimeSender {
		return &recordingSender{}
	}
	saver := &recordingSaver{}
	m := NewManager(base, factory, saver, func(documentID string) string { return "" })

	m.Edit("doc-1", 1, "alice", "alice text")
	m.Edit("doc-1", 2, "bob", "bob text")

	m.CloseAll()

	assert.Len(t, saver.all(), 2)
}
