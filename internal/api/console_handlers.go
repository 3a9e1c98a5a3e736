package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tbalint/messaging-console/internal/auth"
	"github.com/tbalint/messaging-console/internal/csvio"
	"github.com/tbalint/messaging-console/internal/model"
	"github.com/tbalint/messaging-console/internal/validate"
)

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	if ve := validate.Contact(req.Name, req.Phone); ve != nil {
		h.writeError(w, ve)
		return
	}

	now := h.now().UTC()
	c := model.Contact{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repos.Contacts.CreateContact(r.Context(), &c); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.repos.Contacts.GetContact(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Contacts.ListContacts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNil(items)})
}

func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	if ve := validate.Contact(req.Name, req.Phone); ve != nil {
		h.writeError(w, ve)
		return
	}

	c := model.Contact{
		ID:        r.PathValue("id"),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		UpdatedAt: h.now().UTC(),
	}
	if err := h.repos.Contacts.UpdateContact(r.Context(), &c); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.Contacts.DeleteContact(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Contacts.ListContacts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.csv"`)
	if err := csvio.ExportContacts(w, items); err != nil {
		// Headers are gone; all we can do is note it.
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func (h *Handler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	contacts, rowErrs, err := csvio.ImportContacts(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	now := h.now().UTC()
	imported := 0
	for i := range contacts {
		contacts[i].ID = uuid.NewString()
		contacts[i].CreatedAt = now
		contacts[i].UpdatedAt = now
		if err := h.repos.Contacts.CreateContact(r.Context(), &contacts[i]); err != nil {
			h.writeError(w, err)
			return
		}
		imported++
	}

	if rowErrs == nil {
		rowErrs = []csvio.RowError{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": imported,
		"errors":   rowErrs,
	})
}

type templateRequest struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	if ve := validate.Template(req.Name, req.Body); ve != nil {
		h.writeError(w, ve)
		return
	}

	now := h.now().UTC()
	t := model.Template{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repos.Templates.CreateTemplate(r.Context(), &t); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.repos.Templates.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Templates.ListTemplates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNil(items)})
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	if ve := validate.Template(req.Name, req.Body); ve != nil {
		h.writeError(w, ve)
		return
	}

	t := model.Template{
		ID:        r.PathValue("id"),
		Name:      req.Name,
		Body:      req.Body,
		UpdatedAt: h.now().UTC(),
	}
	if err := h.repos.Templates.UpdateTemplate(r.Context(), &t); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.Templates.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	if req.Label == "" {
		h.writeError(w, &validate.ValidationError{Fields: map[string]string{"label": "must not be empty"}})
		return
	}

	plaintext, digest, err := auth.NewKey()
	if err != nil {
		h.writeError(w, err)
		return
	}

	k := model.APIKey{
		ID:        uuid.NewString(),
		Label:     req.Label,
		Digest:    digest,
		CreatedAt: h.now().UTC(),
	}
	if err := h.repos.Keys.CreateAPIKey(r.Context(), &k); err != nil {
		h.writeError(w, err)
		return
	}

	// The plaintext key appears in this response and nowhere else.
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        k.ID,
		"label":     k.Label,
		"createdAt": k.CreatedAt,
		"key":       plaintext,
	})
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Keys.ListAPIKeys(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNil(items)})
}

func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.Keys.DeleteAPIKey(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		return
	}
	if ve := validate.User(req.Email, req.Name, req.Password); ve != nil {
		h.writeError(w, ve)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	u := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		CreatedAt:    h.now().UTC(),
	}
	if err := h.repos.Users.CreateUser(r.Context(), &u); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Users.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNil(items)})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.Users.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
