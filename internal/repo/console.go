package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/tbalint/messaging-console/internal/model"
)

func (s *Store) CreateContact(ctx context.Context, c *model.Contact) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO contacts (id, name, phone, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), c.ID, c.Name, c.Phone, c.Email, millis(c.CreatedAt), millis(c.UpdatedAt))
	return err
}

func (s *Store) GetContact(ctx context.Context, id string) (model.Contact, error) {
	var (
		c                model.Contact
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, phone, email, created_at, updated_at
		FROM contacts
		WHERE id = ?
	`), id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, err
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (s *Store) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, created_at, updated_at
		FROM contacts
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		var (
			c                model.Contact
			created, updated int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &created, &updated); err != nil {
			return nil, err
		}
		c.CreatedAt = fromMillis(created)
		c.UpdatedAt = fromMillis(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateContact(ctx context.Context, c *model.Contact) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE contacts
		SET name = ?, phone = ?, email = ?, updated_at = ?
		WHERE id = ?
	`), c.Name, c.Phone, c.Email, millis(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return found(res)
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM contacts WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return found(res)
}

func (s *Store) CreateTemplate(ctx context.Context, t *model.Template) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO templates (id, name, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), t.ID, t.Name, t.Body, millis(t.CreatedAt), millis(t.UpdatedAt))
	return err
}

func (s *Store) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	var (
		t                model.Template
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, body, created_at, updated_at
		FROM templates
		WHERE id = ?
	`), id).Scan(&t.ID, &t.Name, &t.Body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Template{}, ErrNotFound
	}
	if err != nil {
		return model.Template{}, err
	}
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, body, created_at, updated_at
		FROM templates
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var (
			t                model.Template
			created, updated int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Body, &created, &updated); err != nil {
			return nil, err
		}
		t.CreatedAt = fromMillis(created)
		t.UpdatedAt = fromMillis(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTemplate(ctx context.Context, t *model.Template) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE templates
		SET name = ?, body = ?, updated_at = ?
		WHERE id = ?
	`), t.Name, t.Body, millis(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return found(res)
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM templates WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return found(res)
}

func (s *Store) CreateAPIKey(ctx context.Context, k *model.APIKey) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO api_keys (id, label, digest, created_at)
		VALUES (?, ?, ?, ?)
	`), k.ID, k.Label, k.Digest, millis(k.CreatedAt))
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, digest, created_at
		FROM api_keys
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.APIKey
	for rows.Next() {
		var (
			k       model.APIKey
			created int64
		)
		if err := rows.Scan(&k.ID, &k.Label, &k.Digest, &created); err != nil {
			return nil, err
		}
		k.CreatedAt = fromMillis(created)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) GetAPIKeyByDigest(ctx context.Context, digest string) (model.APIKey, error) {
	var (
		k       model.APIKey
		created int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, label, digest, created_at
		FROM api_keys
		WHERE digest = ?
	`), digest).Scan(&k.ID, &k.Label, &k.Digest, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, err
	}
	k.CreatedAt = fromMillis(created)
	return k, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM api_keys WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return found(res)
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), u.ID, u.Email, u.Name, u.PasswordHash, millis(u.CreatedAt))
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE email = ?
	`), email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u       model.User
			created int64
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = fromMillis(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return found(res)
}

func found(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation matches both sqlite ("UNIQUE constraint failed") and
// postgres ("duplicate key value violates unique constraint") wording.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}
