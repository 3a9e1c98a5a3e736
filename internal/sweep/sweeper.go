// Package sweep implements one tick of delivery processing: select due
// pending messages, push each through the gateway, and record the outcome
// with a status write guarded on the row still being pending. Ticks are safe
// to invoke repeatedly and to overlap; the guard resolves every race.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tbalint/messaging-console/internal/client"
	"github.com/tbalint/messaging-console/internal/model"
	"github.com/tbalint/messaging-console/internal/repo"
)

// Summary is what one tick reports back to its trigger. A message that lost
// the race against a concurrent cancellation is counted in CandidatesFound
// but in neither Sent nor Failed.
type Summary struct {
	CandidatesFound int `json:"candidatesFound"`
	Sent            int `json:"sent"`
	Failed          int `json:"failed"`
}

type Sweeper struct {
	repo   repo.ScheduleRepository
	client client.SendClient
	batch  int

	now func() time.Time

	onSent func(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error
}

func New(r repo.ScheduleRepository, c client.SendClient, batch int) (*Sweeper, error) {
	if r == nil {
		return nil, errors.New("repo must not be nil")
	}
	if c == nil {
		return nil, errors.New("client must not be nil")
	}
	if batch <= 0 {
		return nil, errors.New("batch must be > 0")
	}
	return &Sweeper{
		repo:   r,
		client: c,
		batch:  batch,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source. The sweep never reads a global clock
// beyond this function, so tests can drive it deterministically.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// WithSentHook registers a callback fired after a successful delivery has
// been durably recorded. Hook errors are deliberately not propagated.
func (s *Sweeper) WithSentHook(fn func(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error) *Sweeper {
	s.onSent = fn
	return s
}

// Run performs one sweep. The only fatal error is a failure of the snapshot
// read itself; everything after that is isolated per message. A message whose
// guarded write cannot be performed stays pending and is retried on the next
// tick, which makes delivery at-least-once rather than exactly-once.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	now := s.now()

	due, err := s.repo.ListDue(ctx, now, s.batch)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{CandidatesFound: len(due)}
	for _, m := range due {
		s.process(ctx, m, &sum)
	}
	return sum, nil
}

func (s *Sweeper) process(ctx context.Context, m model.ScheduledMessage, sum *Summary) {
	// Re-check right before acting. The snapshot may be stale by the time
	// this message's turn comes; a message canceled in the meantime must not
	// reach the gateway at all.
	cur, err := s.repo.GetMessage(ctx, m.ID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			slog.Error("pre-send re-read failed, message stays pending", "id", m.ID, "error", err)
		}
		return
	}
	if cur.Status != model.Pending {
		return
	}

	gatewayID, sendErr := s.client.Send(ctx, m.Recipient, m.Content)
	if sendErr != nil {
		if err := s.repo.MarkDelivered(ctx, m.ID, model.Failed, sendErr.Error(), time.Time{}); err != nil {
			if errors.Is(err, repo.ErrNotPending) {
				// Canceled while we were talking to the gateway.
				return
			}
			slog.Error("could not record delivery failure, message stays pending",
				"id", m.ID, "error", err)
			return
		}
		slog.Warn("delivery failed", "id", m.ID, "error", sendErr)
		sum.Failed++
		return
	}

	sentAt := s.now()
	if err := s.repo.MarkDelivered(ctx, m.ID, model.Sent, "", sentAt); err != nil {
		if errors.Is(err, repo.ErrNotPending) {
			// The cancellation won the write race; the send already happened
			// and cannot be recalled.
			slog.Warn("delivered but superseded by cancellation", "id", m.ID)
			return
		}
		slog.Error("delivered but could not record it, next tick may send again",
			"id", m.ID, "error", err)
		return
	}

	sum.Sent++
	if s.onSent != nil {
		_ = s.onSent(ctx, m.ID, gatewayID, sentAt)
	}
}
