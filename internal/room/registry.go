package room

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"collaborative-review-editor/internal/errors"
	"collaborative-review-editor/redis"
)

// Registry keeps at most one room per document, created on first join and
// destroyed when empty. Every command is enqueued under the registry lock,
// which is what lets a room retire itself safely: it only stops once the
// registry has verified, under the same lock, that its queue is drained and
// the map no longer points at it.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	presence *redis.PresenceCache
}

func NewRegistry(presence *redis.PresenceCache) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		presence: presence,
	}
}

// Join validates synchronously; a missing field rejects the join with no
// partial state anywhere.
func (reg *Registry) Join(conn *Connection) error {
	if conn.DocumentID == "" || conn.UserID == 0 || conn.UserName == "" || conn.UserEmail == "" {
		return errors.BadRequest("submissionId, userId, userName and userEmail are required", nil)
	}

	reg.dispatch(conn.DocumentID, joinCmd{conn: conn}, true)
	return nil
}

func (reg *Registry) Leave(conn *Connection) {
	reg.dispatch(conn.DocumentID, leaveCmd{handle: conn.Handle}, false)
}

func (reg *Registry) Inbound(conn *Connection, env Envelope) {
	reg.dispatch(conn.DocumentID, inboundCmd{handle: conn.Handle, env: env}, false)
}

// Inject broadcasts a message into a room without holding a connection.
// Used by privileged callers to relay ledger events to live editors.
// Returns false when nobody is connected.
func (reg *Registry) Inject(documentID string, env Envelope) bool {
	env.SubmissionID = documentID
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().UnixMilli()
	}
	return reg.dispatch(documentID, injectCmd{env: env}, false)
}

// Notify implements the ledger's notifier contract.
func (reg *Registry) Notify(documentID string, eventType string, data map[string]interface{}) {
	reg.Inject(documentID, Envelope{Type: eventType, Data: data})
}

// Users returns the deduplicated membership of a document room. With no live
// room it falls back to the presence store alone, which is what keeps the
// answer correct across host-level eviction.
func (reg *Registry) Users(documentID string) []Member {
	reply := make(chan []Member, 1)
	if !reg.dispatch(documentID, usersCmd{reply: reply}, false) {
		return reg.presenceMembers(documentID)
	}
	select {
	case members := <-reply:
		return members
	case <-time.After(2 * time.Second):
		// Query was shed under load; the presence store still answers.
		return reg.presenceMembers(documentID)
	}
}

// dispatch enqueues a command for the document's room, creating the room
// first when asked to. Returns false when no room exists and none was
// created.
func (reg *Registry) dispatch(documentID string, cmd command, create bool) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[documentID]
	if !ok {
		if !create {
			return false
		}
		r = newRoom(documentID, reg)
		reg.rooms[documentID] = r
		go r.run()
	}

	// Non-blocking: the lock is held, and a room draining its queue must
	// never wait on us while we wait on it.
	select {
	case r.commands <- cmd:
	default:
		log.Printf("[INFO] room %s: command queue full, dropping %T", documentID, cmd)
	}
	return true
}

// remove retires an empty room. It refuses when commands arrived since the
// room went empty; the room then keeps running and processes them.
func (reg *Registry) remove(r *Room) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.rooms[r.documentID] != r || len(r.commands) > 0 {
		return false
	}
	delete(reg.rooms, r.documentID)
	return true
}

func (reg *Registry) presenceMembers(documentID string) []Member {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cached, err := reg.presence.AliveMembers(ctx, documentID)
	if err != nil {
		return nil
	}

	members := make([]Member, 0, len(cached))
	for _, m := range cached {
		members = append(members, Member{
			UserID:      m.UserID,
			UserName:    m.UserName,
			UserEmail:   m.UserEmail,
			ConnectedAt: m.ConnectedAt.UnixMilli(),
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].ConnectedAt != members[j].ConnectedAt {
			return members[i].ConnectedAt < members[j].ConnectedAt
		}
		return members[i].UserID < members[j].UserID
	})
	return members
}
