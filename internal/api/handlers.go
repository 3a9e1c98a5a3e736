package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tbalint/messaging-console/internal/model"
	"github.com/tbalint/messaging-console/internal/repo"
	"github.com/tbalint/messaging-console/internal/scheduler"
	"github.com/tbalint/messaging-console/internal/sweep"
	"github.com/tbalint/messaging-console/internal/validate"
)

// Repos bundles the store interfaces the handlers need. In production every
// field is the same *repo.Store; tests swap in fakes per concern.
type Repos struct {
	Messages  repo.ScheduleRepository
	Contacts  repo.ContactRepository
	Templates repo.TemplateRepository
	Keys      repo.APIKeyRepository
	Users     repo.UserRepository
}

type Handler struct {
	sched   *scheduler.Scheduler
	sweeper *sweep.Sweeper
	repos   Repos
	now     func() time.Time
}

func NewHandler(s *scheduler.Scheduler, sw *sweep.Sweeper, repos Repos) *Handler {
	return &Handler{
		sched:   s,
		sweeper: sw,
		repos:   repos,
		now:     time.Now,
	}
}

// WithClock replaces the handler's time source, used by creation-time
// validation and server-assigned timestamps.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

// Sweep runs one delivery tick on demand and reports its summary. The same
// tick the interval scheduler runs; safe to trigger while it is running.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	sum, err := h.sweeper.Run(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type createMessageRequest struct {
	Recipient     string    `json:"recipient"`
	Content       string    `json:"content"`
	ScheduledTime time.Time `json:"scheduledTime"`

	// Optional references resolved at creation time: a contact supplies the
	// recipient, a template supplies the content. Literal fields win when
	// both are present.
	ContactID  string `json:"contactId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}

	if req.Recipient == "" && req.ContactID != "" {
		c, err := h.repos.Contacts.GetContact(r.Context(), req.ContactID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		req.Recipient = c.Phone
	}
	if req.Content == "" && req.TemplateID != "" {
		t, err := h.repos.Templates.GetTemplate(r.Context(), req.TemplateID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		req.Content = t.Body
	}

	now := h.now()
	if ve := validate.ScheduledMessage(req.Recipient, req.Content, req.ScheduledTime, now); ve != nil {
		h.writeError(w, ve)
		return
	}

	m := model.ScheduledMessage{
		ID:          uuid.NewString(),
		Recipient:   req.Recipient,
		Content:     req.Content,
		ScheduledAt: req.ScheduledTime.UTC(),
		Status:      model.Pending,
		CreatedAt:   now.UTC(),
	}
	if err := h.repos.Messages.CreateMessage(r.Context(), &m); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) CancelMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.repos.Messages.Cancel(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": model.Canceled})
}

func (h *Handler) ListPendingMessages(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Messages.ListPending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNil(items)})
}

func (h *Handler) ListSentMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.repos.Messages.ListSent(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNil(items)})
}

// writeError maps the error taxonomy onto status codes. Every body is a
// discriminated JSON result so UI code can render it without sniffing.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *validate.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	case errors.Is(err, repo.ErrNotPending):
		writeJSON(w, http.StatusConflict, map[string]any{"error": repo.ErrNotPending.Error()})
	case errors.Is(err, repo.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]any{"error": repo.ErrDuplicate.Error()})
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": repo.ErrNotFound.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
