package room

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	apiErrors "collaborative-review-editor/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == "null" {
			return true
		}
		allowedPrefixes := []string{
			"http://localhost",
			"http://127.0.0.1",
			"https://localhost",
			"https://127.0.0.1",
		}
		for _, p := range allowedPrefixes {
			if strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	},
}

// InboundObserver sees every inbound envelope alongside the connection's
// stored identity, after the registry has taken it. Used to feed content
// events into the collaboration coordinators.
type InboundObserver interface {
	ObserveInbound(conn *Connection, env Envelope)
}

type Handler struct {
	registry *Registry
	observer InboundObserver
}

func NewHandler(registry *Registry, observer InboundObserver) *Handler {
	return &Handler{registry: registry, observer: observer}
}

// ServeWS upgrades a client connection. All four identity parameters are
// required; a missing one rejects the upgrade before any state is touched.
func (h *Handler) ServeWS(c *gin.Context) {
	documentID := c.Query("submissionId")
	userIDParam := c.Query("userId")
	userName := c.Query("userName")
	userEmail := c.Query("userEmail")

	if documentID == "" || userIDParam == "" || userName == "" || userEmail == "" {
		c.Error(apiErrors.BadRequest("submissionId, userId, userName and userEmail are required", nil))
		return
	}
	userID, err := strconv.ParseUint(userIDParam, 10, 64)
	if err != nil || userID == 0 {
		c.Error(apiErrors.BadRequest("Invalid userId", err))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}

	sender := NewWSSender(ws)
	conn := NewConnection(uuid.NewString(), documentID, userID, userName, userEmail, sender)

	if err := h.registry.Join(conn); err != nil {
		sender.Close()
		return
	}

	go sender.WriteLoop()
	h.readLoop(conn, ws)
}

// readLoop blocks until the connection closes, then runs the leave path.
func (h *Handler) readLoop(conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.registry.Leave(conn)
		conn.sender.Close()
	}()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error (user=%d, doc=%s): %v", conn.UserID, conn.DocumentID, err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))
		h.registry.Inbound(conn, env)
		if h.observer != nil {
			h.observer.ObserveInbound(conn, env)
		}
	}
}

// ShowRoom answers the operational introspection query.
func (h *Handler) ShowRoom(c *gin.Context) {
	documentID := c.Param("id")
	users := h.registry.Users(documentID)

	c.JSON(http.StatusOK, gin.H{
		"submissionId": documentID,
		"users":        users,
		"userCount":    len(users),
	})
}

type InjectRequest struct {
	Type string                 `json:"type" binding:"required"`
	Data map[string]interface{} `json:"data"`
}

// InjectBroadcast lets a privileged caller push a message into a room
// without holding a connection.
func (h *Handler) InjectBroadcast(c *gin.Context) {
	var form InjectRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiErrors.NewValidationError(err))
		return
	}

	delivered := h.registry.Inject(c.Param("id"), Envelope{Type: form.Type, Data: form.Data})

	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}
