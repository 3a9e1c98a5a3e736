package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxContentLength caps message and template bodies, in runes.
	MaxContentLength = 1000

	// ScheduleGrace absorbs clock skew between caller and server: a
	// scheduled time up to this far in the past is still accepted.
	ScheduleGrace = 5 * time.Second
)

// ValidationError carries a field -> message breakdown so callers can render
// per-field errors. It is returned by value-level checks, never retried.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// ScheduledMessage checks a creation request against the store's constraints.
// now is the server's notion of the current time; scheduledAt must not be more
// than ScheduleGrace in the past relative to it.
func ScheduledMessage(recipient, content string, scheduledAt, now time.Time) *ValidationError {
	ve := newError()

	if strings.TrimSpace(recipient) == "" {
		ve.Fields["recipient"] = "must not be empty"
	}
	if content == "" {
		ve.Fields["content"] = "must not be empty"
	} else if n := utf8.RuneCountInString(content); n > MaxContentLength {
		ve.Fields["content"] = fmt.Sprintf("must be at most %d characters, got %d", MaxContentLength, n)
	}
	if scheduledAt.IsZero() {
		ve.Fields["scheduledTime"] = "must be set"
	} else if scheduledAt.Before(now.Add(-ScheduleGrace)) {
		ve.Fields["scheduledTime"] = "must not be in the past"
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}

func Contact(name, phone string) *ValidationError {
	ve := newError()

	if strings.TrimSpace(name) == "" {
		ve.Fields["name"] = "must not be empty"
	}
	if strings.TrimSpace(phone) == "" {
		ve.Fields["phone"] = "must not be empty"
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}

func Template(name, body string) *ValidationError {
	ve := newError()

	if strings.TrimSpace(name) == "" {
		ve.Fields["name"] = "must not be empty"
	}
	if body == "" {
		ve.Fields["body"] = "must not be empty"
	} else if n := utf8.RuneCountInString(body); n > MaxContentLength {
		ve.Fields["body"] = fmt.Sprintf("must be at most %d characters, got %d", MaxContentLength, n)
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}

func User(email, name, password string) *ValidationError {
	ve := newError()

	if !strings.Contains(email, "@") {
		ve.Fields["email"] = "must be a valid email address"
	}
	if strings.TrimSpace(name) == "" {
		ve.Fields["name"] = "must not be empty"
	}
	if len(password) < 8 {
		ve.Fields["password"] = "must be at least 8 characters"
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}
