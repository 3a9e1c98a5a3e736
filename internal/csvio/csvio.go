// Package csvio handles bulk contact import/export. The format is a plain
// three-column CSV with a header row: name,phone,email.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tbalint/messaging-console/internal/model"
	"github.com/tbalint/messaging-console/internal/validate"
)

var header = []string{"name", "phone", "email"}

// RowError reports why one input line was rejected. Line numbers are
// 1-based and include the header line, matching what a user sees in their
// spreadsheet.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportContacts parses CSV input into contacts. Invalid lines are collected
// as RowErrors rather than aborting the import, so a single bad row does not
// discard the rest of the file. IDs and timestamps are left for the caller.
func ImportContacts(r io.Reader) ([]model.Contact, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if !isHeader(first) {
		return nil, nil, fmt.Errorf("expected header %q, got %q", strings.Join(header, ","), strings.Join(first, ","))
	}

	var (
		contacts []model.Contact
		rowErrs  []RowError
	)

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Message: err.Error()})
			continue
		}
		if len(rec) < 2 || len(rec) > 3 {
			rowErrs = append(rowErrs, RowError{Line: line, Message: fmt.Sprintf("expected 2 or 3 fields, got %d", len(rec))})
			continue
		}

		c := model.Contact{
			Name:  strings.TrimSpace(rec[0]),
			Phone: strings.TrimSpace(rec[1]),
		}
		if len(rec) == 3 {
			c.Email = strings.TrimSpace(rec[2])
		}

		if ve := validate.Contact(c.Name, c.Phone); ve != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Message: ve.Error()})
			continue
		}
		contacts = append(contacts, c)
	}

	return contacts, rowErrs, nil
}

// ExportContacts writes contacts as CSV, header first.
func ExportContacts(w io.Writer, contacts []model.Contact) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range contacts {
		if err := cw.Write([]string{c.Name, c.Phone, c.Email}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func isHeader(rec []string) bool {
	if len(rec) != len(header) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), h) {
			return false
		}
	}
	return true
}
