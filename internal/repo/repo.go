package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tbalint/messaging-console/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotPending is returned when a guarded status transition matched no
	// row: the message may not exist, may already be sent or failed, or may
	// already be canceled. The store deliberately does not distinguish these
	// cases, so callers cannot observe which side of a race they lost.
	ErrNotPending = errors.New("not found or not pending")

	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("already exists")
)

type ScheduleRepository interface {
	CreateMessage(ctx context.Context, m *model.ScheduledMessage) error
	GetMessage(ctx context.Context, id string) (model.ScheduledMessage, error)
	ListPending(ctx context.Context) ([]model.ScheduledMessage, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledMessage, error)
	ListSent(ctx context.Context, limit, offset int) ([]model.ScheduledMessage, error)

	// Cancel flips a pending message to canceled. The update is conditioned
	// on status still being pending; ErrNotPending otherwise.
	Cancel(ctx context.Context, id string) error

	// MarkDelivered records the sweep's outcome (Sent or Failed) for a
	// message, conditioned on status still being pending. reason is stored
	// as the last error for failed outcomes, at as the sent time for sent
	// ones. ErrNotPending when the guard matched no row.
	MarkDelivered(ctx context.Context, id string, outcome model.Status, reason string, at time.Time) error
}

type ContactRepository interface {
	CreateContact(ctx context.Context, c *model.Contact) error
	GetContact(ctx context.Context, id string) (model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	UpdateContact(ctx context.Context, c *model.Contact) error
	DeleteContact(ctx context.Context, id string) error
}

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, t *model.Template) error
	GetTemplate(ctx context.Context, id string) (model.Template, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	UpdateTemplate(ctx context.Context, t *model.Template) error
	DeleteTemplate(ctx context.Context, id string) error
}

type APIKeyRepository interface {
	CreateAPIKey(ctx context.Context, k *model.APIKey) error
	ListAPIKeys(ctx context.Context) ([]model.APIKey, error)
	GetAPIKeyByDigest(ctx context.Context, digest string) (model.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error
}
