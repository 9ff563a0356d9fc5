package collab

import (
	"fmt"
	"sync"
)

// SenderFactory builds the realtime fan-out for one editor's coordinator.
type SenderFactory func(documentID string, userID uint64, userName string) RealtimeSender

// InitialLoader fetches the last persisted buffer for a document, so the
// first auto-save window starts from the stored state and not from the
// first snapshot it sees.
type InitialLoader func(documentID string) string

// Manager keeps one coordinator per active editor, created on first edit and
// torn down on shutdown.
type Manager struct {
	mu      sync.Mutex
	coords  map[string]*Coordinator // documentID:userID -> coordinator
	base    Options
	senders SenderFactory
	saver   Saver
	initial InitialLoader
}

func NewManager(base Options, senders SenderFactory, saver Saver, initial InitialLoader) *Manager {
	return &Manager{
		coords:  make(map[string]*Coordinator),
		base:    base,
		senders: senders,
		saver:   saver,
		initial: initial,
	}
}

func (m *Manager) coordinator(documentID string, userID uint64, userName string) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s:%d", documentID, userID)
	if c, ok := m.coords[key]; ok {
		return c
	}

	opts := m.base
	opts.DocumentID = documentID
	opts.AuthorID = userID
	opts.AuthorName = userName

	c := NewCoordinator(opts, m.senders(documentID, userID, userName), m.saver, m.initial(documentID))
	m.coords[key] = c
	return c
}

// Edit routes one editor's buffer snapshot into their coordinator.
func (m *Manager) Edit(documentID string, userID uint64, userName, content string) {
	c := m.coordinator(documentID, userID, userName)
	c.Edit(content)
}

// ApplyRemote pushes a remote snapshot into every coordinator for the
// document except the author's own.
func (m *Manager) ApplyRemote(documentID string, authorID uint64, content string, preserveEditing bool) {
	m.mu.Lock()
	var targets []*Coordinator
	prefix := documentID + ":"
	for key, c := range m.coords {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && c.opts.AuthorID != authorID {
			targets = append(targets, c)
		}
	}
	m.mu.Unlock()

	for _, c := range targets {
		c.ApplyRemote(content, preserveEditing)
	}
}

// CloseAll flushes outstanding auto-save windows on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	coords := make([]*Coordinator, 0, len(m.coords))
	for _, c := range m.coords {
		coords = append(coords, c)
	}
	m.coords = make(map[string]*Coordinator)
	m.mu.Unlock()

	for _, c := range coords {
		c.Close()
	}
}
