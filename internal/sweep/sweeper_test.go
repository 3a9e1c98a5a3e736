package sweep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tbalint/messaging-console/internal/model"
	"github.com/tbalint/messaging-console/internal/repo"
)

// fakeStore implements repo.ScheduleRepository in memory with the same guard
// semantics as the SQL store, plus knobs for injecting failures.
type fakeStore struct {
	mu   sync.Mutex
	msgs map[string]*model.ScheduledMessage

	listErr error
	markErr map[string]error
	dueOnly []model.ScheduledMessage // overrides ListDue when set
}

var _ repo.ScheduleRepository = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		msgs:    make(map[string]*model.ScheduledMessage),
		markErr: make(map[string]error),
	}
}

func (f *fakeStore) add(id, recipient string, scheduledAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[id] = &model.ScheduledMessage{
		ID:          id,
		Recipient:   recipient,
		Content:     "hello " + id,
		ScheduledAt: scheduledAt,
		Status:      model.Pending,
		CreatedAt:   scheduledAt.Add(-time.Minute),
	}
}

func (f *fakeStore) status(id string) model.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[id].Status
}

func (f *fakeStore) CreateMessage(ctx context.Context, m *model.ScheduledMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.msgs[m.ID] = &cp
	return nil
}

func (f *fakeStore) GetMessage(ctx context.Context, id string) (model.ScheduledMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return model.ScheduledMessage{}, repo.ErrNotFound
	}
	return *m, nil
}

func (f *fakeStore) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	return nil, errors.New("not used by the sweep")
}

func (f *fakeStore) ListDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.dueOnly != nil {
		return f.dueOnly, nil
	}

	var out []model.ScheduledMessage
	for _, m := range f.msgs {
		if m.Status == model.Pending && !m.ScheduledAt.After(now) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListSent(ctx context.Context, limit, offset int) ([]model.ScheduledMessage, error) {
	return nil, errors.New("not used by the sweep")
}

func (f *fakeStore) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.Status != model.Pending {
		return repo.ErrNotPending
	}
	m.Status = model.Canceled
	return nil
}

func (f *fakeStore) MarkDelivered(ctx context.Context, id string, outcome model.Status, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.markErr[id]; err != nil {
		return err
	}
	m, ok := f.msgs[id]
	if !ok || m.Status != model.Pending {
		return repo.ErrNotPending
	}
	m.Status = outcome
	if outcome == model.Sent {
		t := at
		m.SentAt = &t
	} else {
		r := reason
		m.LastError = &r
	}
	return nil
}

type sendFunc func(ctx context.Context, recipient, content string) (string, error)

func (f sendFunc) Send(ctx context.Context, recipient, content string) (string, error) {
	return f(ctx, recipient, content)
}

func okSend(ctx context.Context, recipient, content string) (string, error) {
	return "gw-" + recipient, nil
}

func TestNew_InvalidArgs(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, sendFunc(okSend), 1); err == nil {
		t.Fatalf("expected error for nil repo")
	}
	if _, err := New(newFakeStore(), nil, 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := New(newFakeStore(), sendFunc(okSend), 0); err == nil {
		t.Fatalf("expected error for batch=0")
	}
}

func TestRun_DeliversDueMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.add("m1", "+361", now.Add(-time.Second))

	var hookID, hookGateway string
	sw, err := New(store, sendFunc(okSend), 10)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	sw.WithClock(func() time.Time { return now }).
		WithSentHook(func(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error {
			hookID, hookGateway = id, gatewayMessageID
			return nil
		})

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 1, Sent: 1, Failed: 0}) {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if got := store.status("m1"); got != model.Sent {
		t.Fatalf("expected status sent, got %q", got)
	}
	if hookID != "m1" || hookGateway != "gw-+361" {
		t.Fatalf("expected sent hook, got id=%q gateway=%q", hookID, hookGateway)
	}
}

func TestRun_RecordsDeliveryFailure(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	store.add("m1", "+361", now.Add(-time.Second))

	sw, _ := New(store, sendFunc(func(ctx context.Context, recipient, content string) (string, error) {
		return "", errors.New("gateway exploded")
	}), 10)
	sw.WithClock(func() time.Time { return now })

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 1, Sent: 0, Failed: 1}) {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if got := store.status("m1"); got != model.Failed {
		t.Fatalf("expected status failed, got %q", got)
	}

	m, _ := store.GetMessage(context.Background(), "m1")
	if m.LastError == nil || *m.LastError != "gateway exploded" {
		t.Fatalf("expected last error recorded, got %v", m.LastError)
	}
}

// One bad message must not take the rest of the batch down with it.
func TestRun_BatchIsolation(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	for i := 0; i < 5; i++ {
		store.add(fmt.Sprintf("m%d", i), fmt.Sprintf("+36%d", i), now.Add(-time.Minute))
	}

	sw, _ := New(store, sendFunc(func(ctx context.Context, recipient, content string) (string, error) {
		if recipient == "+362" {
			return "", errors.New("boom")
		}
		return "gw", nil
	}), 10)
	sw.WithClock(func() time.Time { return now })

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 5, Sent: 4, Failed: 1}) {
		t.Fatalf("unexpected summary %+v", sum)
	}

	for i := 0; i < 5; i++ {
		got := store.status(fmt.Sprintf("m%d", i))
		want := model.Sent
		if i == 2 {
			want = model.Failed
		}
		if got != want {
			t.Fatalf("m%d: expected %q, got %q", i, want, got)
		}
	}
}

// Re-running with nothing new due must be a no-op.
func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	store.add("m1", "+361", now.Add(-time.Second))

	sw, _ := New(store, sendFunc(okSend), 10)
	sw.WithClock(func() time.Time { return now })

	if _, err := sw.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if sum != (Summary{}) {
		t.Fatalf("expected empty summary on second run, got %+v", sum)
	}
}

// A message canceled between the snapshot and processing must never reach
// the gateway, and counts as neither sent nor failed.
func TestRun_PreSendRecheckSkipsCanceled(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	store.add("m1", "+361", now.Add(-time.Second))

	// Stale snapshot: ListDue still returns m1 although it is canceled.
	snapshot, _ := store.ListDue(context.Background(), now, 10)
	store.dueOnly = snapshot
	if err := store.Cancel(context.Background(), "m1"); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	sent := false
	sw, _ := New(store, sendFunc(func(ctx context.Context, recipient, content string) (string, error) {
		sent = true
		return "gw", nil
	}), 10)
	sw.WithClock(func() time.Time { return now })

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sent {
		t.Fatalf("canceled message must not be sent")
	}
	if sum != (Summary{CandidatesFound: 1}) {
		t.Fatalf("expected candidate counted but no outcome, got %+v", sum)
	}
	if got := store.status("m1"); got != model.Canceled {
		t.Fatalf("expected status canceled, got %q", got)
	}
}

// Losing the write race to a cancellation counts in neither tally.
func TestRun_GuardLossCountsNeither(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	store.add("m1", "+361", now.Add(-time.Second))
	store.markErr["m1"] = repo.ErrNotPending

	sw, _ := New(store, sendFunc(okSend), 10)
	sw.WithClock(func() time.Time { return now })

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 1}) {
		t.Fatalf("expected no sent/failed counts, got %+v", sum)
	}
}

// A failing status write is the one fatal per-record condition: the message
// stays pending and the next tick retries it (at-least-once delivery).
func TestRun_PersistenceFailureLeavesPendingForRetry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	store.add("m1", "+361", now.Add(-time.Second))
	store.markErr["m1"] = errors.New("store unavailable")

	sw, _ := New(store, sendFunc(okSend), 10)
	sw.WithClock(func() time.Time { return now })

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 1}) {
		t.Fatalf("expected no outcome counted, got %+v", sum)
	}
	if got := store.status("m1"); got != model.Pending {
		t.Fatalf("expected message to stay pending, got %q", got)
	}

	// Store recovers; the retry delivers.
	delete(store.markErr, "m1")
	sum, err = sw.Run(context.Background())
	if err != nil {
		t.Fatalf("retry Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 1, Sent: 1}) {
		t.Fatalf("expected retry to deliver, got %+v", sum)
	}
}

func TestRun_SnapshotReadFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.listErr = errors.New("connection refused")

	sw, _ := New(store, sendFunc(okSend), 10)

	if _, err := sw.Run(context.Background()); err == nil {
		t.Fatalf("expected error when the snapshot read fails")
	}
}

func TestRun_HonorsBatchLimit(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := newFakeStore()
	for i := 0; i < 7; i++ {
		store.add(fmt.Sprintf("m%d", i), "+361", now.Add(-time.Minute))
	}

	sw, _ := New(store, sendFunc(okSend), 3)
	sw.WithClock(func() time.Time { return now })

	sum, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{CandidatesFound: 3, Sent: 3}) {
		t.Fatalf("expected batch of 3, got %+v", sum)
	}
}
