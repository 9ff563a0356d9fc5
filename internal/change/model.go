package change

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Change is one auditable, independently decidable unit of textual edit.
// OldValue/NewValue are immutable once created; only status transitions
// mutate the record.
type Change struct {
	ID            string `gorm:"primaryKey;size:32" json:"id"`
	DocumentID    string `gorm:"size:255;index" json:"submissionId"`
	Field         string `gorm:"size:128" json:"field"`
	OldValue      string `json:"oldValue"`
	NewValue      string `json:"newValue"`
	RichTextOld   *string `json:"richTextOld,omitempty"`
	RichTextNew   *string `json:"richTextNew,omitempty"`
	AuthorID      uint64  `gorm:"index" json:"authorId"`
	AuthorName    string  `gorm:"size:255" json:"authorName"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	Status        Status    `gorm:"size:16;index" json:"status"`
	ApproverID    *uint64   `json:"approverId,omitempty"`
	RejecterID    *uint64   `json:"rejecterId,omitempty"`
	IsIncremental bool      `json:"isIncremental"`

	Comments []ChangeComment `gorm:"foreignKey:ChangeID" json:"comments"`
}

// ChangeComment is permanent; comments survive every status transition.
type ChangeComment struct {
	ID         string    `gorm:"primaryKey;size:32" json:"id"`
	ChangeID   string    `gorm:"size:32;index" json:"changeId"`
	AuthorID   uint64    `json:"authorId"`
	AuthorName string    `gorm:"size:255" json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stats aggregates a filtered change listing.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Filter narrows a listing by time range and author.
type Filter struct {
	From     *time.Time
	To       *time.Time
	AuthorID *uint64
	Page     int
	PerPage  int
}
