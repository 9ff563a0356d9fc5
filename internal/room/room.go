package room

import (
	"context"
	"log"
	"sort"
	"time"

	"collaborative-review-editor/redis"
)

const commandBuffer = 256

type command interface{}

type joinCmd struct{ conn *Connection }
type leaveCmd struct{ handle string }
type inboundCmd struct {
	handle string
	env    Envelope
}
type injectCmd struct{ env Envelope }
type usersCmd struct{ reply chan []Member }

// Room is the live connection set collaborating on one document. All
// commands for one document are processed by a single goroutine in strict
// arrival order; different documents run independently. The in-memory
// connection map is a best-effort cache over the presence store, never a
// durable membership log.
type Room struct {
	documentID string
	registry   *Registry
	commands   chan command
	conns      map[string]*Connection // handle -> connection
	stopped    bool
}

func newRoom(documentID string, registry *Registry) *Room {
	return &Room{
		documentID: documentID,
		registry:   registry,
		commands:   make(chan command, commandBuffer),
		conns:      make(map[string]*Connection),
	}
}

func (r *Room) run() {
	for cmd := range r.commands {
		switch c := cmd.(type) {
		case joinCmd:
			r.handleJoin(c.conn)
		case leaveCmd:
			r.removeConnection(c.handle, true)
		case inboundCmd:
			r.handleInbound(c.handle, c.env)
		case injectCmd:
			r.broadcast(c.env, "")
		case usersCmd:
			c.reply <- r.users()
			close(c.reply)
		}

		if r.stopped {
			return
		}
	}
}

func (r *Room) handleJoin(conn *Connection) {
	r.conns[conn.Handle] = conn

	r.presenceAdd(conn)

	joined := r.envelope(EventUserJoined, conn)
	joined.Data = conn.member()
	r.broadcast(joined, conn.Handle)

	// room_state lists the other participants, deduplicated by userId.
	state := r.envelope(EventRoomState, conn)
	others := make([]Member, 0)
	for _, m := range r.users() {
		if m.UserID != conn.UserID {
			others = append(others, m)
		}
	}
	state.Data = map[string]interface{}{"users": others}
	r.sendTo(conn, state)

	r.sendTo(conn, r.envelope(EventConnected, conn))
}

func (r *Room) handleInbound(handle string, env Envelope) {
	conn, ok := r.conns[handle]
	if !ok {
		return
	}

	// Identity and timestamp always come from the stored metadata.
	env.SubmissionID = r.documentID
	env.UserID = conn.UserID
	env.UserName = conn.UserName
	env.UserEmail = conn.UserEmail
	env.Timestamp = time.Now().UnixMilli()

	if env.Type == EventHeartbeat {
		// Heartbeats refresh presence and answer only the sender.
		r.presenceAdd(conn)
		reply := r.envelope(EventHeartbeatResponse, conn)
		r.sendTo(conn, reply)
		return
	}

	r.broadcast(env, handle)
}

// broadcast delivers to every open connection except the excluded handle.
// Delivery is best-effort and non-transactional: a failed send prunes only
// that connection, the rest still receive the message.
func (r *Room) broadcast(env Envelope, except string) {
	var failed []string
	for handle, conn := range r.conns {
		if handle == except {
			continue
		}
		if err := conn.sender.Send(env); err != nil {
			log.Printf("[INFO] room %s: dropping stale connection %s (user=%d): %v",
				r.documentID, handle, conn.UserID, err)
			failed = append(failed, handle)
		}
	}
	for _, handle := range failed {
		r.removeConnection(handle, true)
	}
}

func (r *Room) sendTo(conn *Connection, env Envelope) {
	if err := conn.sender.Send(env); err != nil {
		log.Printf("[INFO] room %s: dropping stale connection %s (user=%d): %v",
			r.documentID, conn.Handle, conn.UserID, err)
		r.removeConnection(conn.Handle, true)
	}
}

func (r *Room) removeConnection(handle string, notify bool) {
	conn, ok := r.conns[handle]
	if !ok {
		return
	}
	delete(r.conns, handle)
	conn.sender.Close()

	// Keep presence if the same user still has another connection open.
	userStillHere := false
	for _, other := range r.conns {
		if other.UserID == conn.UserID {
			userStillHere = true
			break
		}
	}
	if !userStillHere {
		r.presenceRemove(conn)
	}

	if notify && !userStillHere {
		left := r.envelope(EventUserLeft, conn)
		left.Data = conn.member()
		r.broadcast(left, "")
	}

	if len(r.conns) == 0 {
		if r.registry.remove(r) {
			r.stopped = true
		}
	}
}

// users merges live connections with the presence store, deduplicated by
// userId. The presence side keeps membership answerable even after host-level
// eviction of the in-memory state.
func (r *Room) users() []Member {
	byUser := make(map[uint64]Member)
	for _, conn := range r.conns {
		m := conn.member()
		if existing, ok := byUser[m.UserID]; !ok || m.ConnectedAt < existing.ConnectedAt {
			byUser[m.UserID] = m
		}
	}

	for _, pm := range r.registry.presenceMembers(r.documentID) {
		if _, ok := byUser[pm.UserID]; !ok {
			byUser[pm.UserID] = pm
		}
	}

	members := make([]Member, 0, len(byUser))
	for _, m := range byUser {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].ConnectedAt != members[j].ConnectedAt {
			return members[i].ConnectedAt < members[j].ConnectedAt
		}
		return members[i].UserID < members[j].UserID
	})
	return members
}

func (r *Room) envelope(eventType string, conn *Connection) Envelope {
	return Envelope{
		Type:         eventType,
		SubmissionID: r.documentID,
		UserID:       conn.UserID,
		UserName:     conn.UserName,
		UserEmail:    conn.UserEmail,
		Timestamp:    time.Now().UnixMilli(),
	}
}

func (r *Room) presenceAdd(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.registry.presence.AddMember(ctx, r.documentID, redis.Member{
		UserID:      conn.UserID,
		UserName:    conn.UserName,
		UserEmail:   conn.UserEmail,
		ConnectedAt: conn.ConnectedAt,
	})
	if err != nil {
		log.Printf("[INFO] room %s: presence add failed for user %d: %v", r.documentID, conn.UserID, err)
	}
}

func (r *Room) presenceRemove(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.registry.presence.RemoveMember(ctx, r.documentID, conn.UserID); err != nil {
		log.Printf("[INFO] room %s: presence remove failed for user %d: %v", r.documentID, conn.UserID, err)
	}
}
