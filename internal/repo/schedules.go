package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tbalint/messaging-console/internal/model"
)

const messageColumns = "id, recipient, content, scheduled_at, status, created_at, sent_at, last_error"

func (s *Store) CreateMessage(ctx context.Context, m *model.ScheduledMessage) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO scheduled_messages (id, recipient, content, scheduled_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), m.ID, m.Recipient, m.Content, millis(m.ScheduledAt), string(m.Status), millis(m.CreatedAt))
	return err
}

func (s *Store) GetMessage(ctx context.Context, id string) (model.ScheduledMessage, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE id = ?
	`), id)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScheduledMessage{}, ErrNotFound
	}
	return m, err
}

func (s *Store) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE status = 'pending'
		ORDER BY scheduled_at ASC
	`))
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// ListDue returns the pending messages whose scheduled time has passed,
// soonest first. This is the sweep's snapshot read; no claim is taken and no
// lock is held, the guarded writes below resolve any race.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduledMessage, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE status = 'pending' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
		LIMIT ?
	`), millis(now), limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *Store) ListSent(ctx context.Context, limit, offset int) ([]model.ScheduledMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+messageColumns+`
		FROM scheduled_messages
		WHERE status = 'sent'
		ORDER BY sent_at DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *Store) Cancel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE scheduled_messages
		SET status = 'canceled'
		WHERE id = ? AND status = 'pending'
	`), id)
	if err != nil {
		return err
	}
	return guard(res)
}

func (s *Store) MarkDelivered(ctx context.Context, id string, outcome model.Status, reason string, at time.Time) error {
	switch outcome {
	case model.Sent:
		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE scheduled_messages
			SET status = 'sent', sent_at = ?
			WHERE id = ? AND status = 'pending'
		`), millis(at), id)
		if err != nil {
			return err
		}
		return guard(res)

	case model.Failed:
		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE scheduled_messages
			SET status = 'failed', last_error = ?
			WHERE id = ? AND status = 'pending'
		`), reason, id)
		if err != nil {
			return err
		}
		return guard(res)

	default:
		return fmt.Errorf("invalid delivery outcome %q", outcome)
	}
}

// guard maps a zero-row conditional update to ErrNotPending. The status
// predicate and the write happen in one statement, so whichever of cancel and
// markDelivered reaches the row first wins and the loser sees this error.
func guard(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (model.ScheduledMessage, error) {
	var (
		m         model.ScheduledMessage
		status    string
		scheduled int64
		created   int64
		sentAt    sql.NullInt64
		lastErr   sql.NullString
	)

	if err := row.Scan(
		&m.ID,
		&m.Recipient,
		&m.Content,
		&scheduled,
		&status,
		&created,
		&sentAt,
		&lastErr,
	); err != nil {
		return model.ScheduledMessage{}, err
	}

	m.Status = model.Status(status)
	m.ScheduledAt = fromMillis(scheduled)
	m.CreatedAt = fromMillis(created)
	if sentAt.Valid {
		t := fromMillis(sentAt.Int64)
		m.SentAt = &t
	}
	if lastErr.Valid {
		v := lastErr.String
		m.LastError = &v
	}
	return m, nil
}

func collectMessages(rows *sql.Rows) ([]model.ScheduledMessage, error) {
	defer rows.Close()

	var out []model.ScheduledMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
