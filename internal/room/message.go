package room

// Recognized envelope types. Identity and timestamp fields of inbound
// envelopes are always overwritten from the connection's stored metadata,
// never trusted from the payload.
const (
	EventUserJoined            = "user_joined"
	EventUserLeft              = "user_left"
	EventEditingStarted        = "editing_started"
	EventEditingStopped        = "editing_stopped"
	EventContentUpdated        = "content_updated"
	EventRealtimeContentUpdate = "realtime_content_update"
	EventCommentAdded          = "comment_added"
	EventApprovalAdded         = "approval_added"
	EventStatusChanged         = "status_changed"
	EventError                 = "error"
	EventRoomState             = "room_state"
	EventConnected             = "connected"
	EventHeartbeat             = "heartbeat"
	EventHeartbeatResponse     = "heartbeat_response"
	EventCursorRefreshAll      = "request_cursor_refresh_all"
)

// Envelope is the wire message shared by both directions.
type Envelope struct {
	Type         string      `json:"type"`
	SubmissionID string      `json:"submissionId"`
	UserID       uint64      `json:"userId"`
	UserName     string      `json:"userName"`
	UserEmail    string      `json:"userEmail"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    int64       `json:"timestamp"` // unix milliseconds, server-assigned
}

// Member is one deduplicated room participant.
type Member struct {
	UserID      uint64 `json:"userId"`
	UserName    string `json:"userName"`
	UserEmail   string `json:"userEmail"`
	ConnectedAt int64  `json:"connectedAt"` // unix milliseconds
}
