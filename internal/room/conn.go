package room

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSlowConsumer marks a connection whose outbound buffer is full. The room
// treats it like any other send failure and prunes the connection.
var ErrSlowConsumer = errors.New("outbound buffer full")

// Sender abstracts the transport so room logic is testable without sockets.
type Sender interface {
	Send(msg Envelope) error
	Close() error
}

// Connection is the room-side record of one live editor. Owned exclusively
// by its room; removed on close, error, or send failure.
type Connection struct {
	Handle      string
	DocumentID  string
	UserID      uint64
	UserName    string
	UserEmail   string
	ConnectedAt time.Time

	sender Sender
}

func NewConnection(handle, documentID string, userID uint64, userName, userEmail string, sender Sender) *Connection {
	return &Connection{
		Handle:      handle,
		DocumentID:  documentID,
		UserID:      userID,
		UserName:    userName,
		UserEmail:   userEmail,
		ConnectedAt: time.Now().UTC(),
		sender:      sender,
	}
}

func (c *Connection) member() Member {
	return Member{
		UserID:      c.UserID,
		UserName:    c.UserName,
		UserEmail:   c.UserEmail,
		ConnectedAt: c.ConnectedAt.UnixMilli(),
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 32
)

// WSSender drives a gorilla connection with a buffered outbound queue and a
// dedicated write loop, so a slow client never blocks the room goroutine.
type WSSender struct {
	ws   *websocket.Conn
	send chan Envelope
	done chan struct{}
}

func NewWSSender(ws *websocket.Conn) *WSSender {
	return &WSSender{
		ws:   ws,
		send: make(chan Envelope, sendBuffer),
		done: make(chan struct{}),
	}
}

func (s *WSSender) Send(msg Envelope) error {
	select {
	case <-s.done:
		return errors.New("connection closed")
	case s.send <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (s *WSSender) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	return s.ws.Close()
}

// WriteLoop consumes the outbound queue until the connection closes.
func (s *WSSender) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.ws.Close()
	}()

	for {
		select {
		case <-s.done:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			s.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-s.send:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
