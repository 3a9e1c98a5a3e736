package model

import "time"

type Status string

const (
	Pending  Status = "pending"
	Sent     Status = "sent"
	Failed   Status = "failed"
	Canceled Status = "canceled"
)

// Terminal reports whether a message in this status can still transition.
// Pending is the only live status.
func (s Status) Terminal() bool {
	return s == Sent || s == Failed || s == Canceled
}

// ScheduledMessage is an outbound message waiting for its due time.
// Status only ever moves pending -> sent | failed | canceled, and every
// write that performs such a move is guarded on the row still being pending.
type ScheduledMessage struct {
	ID          string     `json:"id"`
	Recipient   string     `json:"recipient"`
	Content     string     `json:"content"`
	ScheduledAt time.Time  `json:"scheduledTime"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
}

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// APIKey stores only the sha256 digest of the minted key. The plaintext is
// returned once at creation and never persisted.
type APIKey struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Digest    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
