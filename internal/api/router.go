package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("POST /v1/sweep", h.Sweep)
	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("POST /v1/messages", h.CreateMessage)
	mux.HandleFunc("GET /v1/messages/pending", h.ListPendingMessages)
	mux.HandleFunc("GET /v1/messages/sent", h.ListSentMessages)
	mux.HandleFunc("POST /v1/messages/{id}/cancel", h.CancelMessage)

	mux.HandleFunc("GET /v1/contacts", h.ListContacts)
	mux.HandleFunc("POST /v1/contacts", h.CreateContact)
	mux.HandleFunc("GET /v1/contacts/export", h.ExportContacts)
	mux.HandleFunc("POST /v1/contacts/import", h.ImportContacts)
	mux.HandleFunc("GET /v1/contacts/{id}", h.GetContact)
	mux.HandleFunc("PUT /v1/contacts/{id}", h.UpdateContact)
	mux.HandleFunc("DELETE /v1/contacts/{id}", h.DeleteContact)

	mux.HandleFunc("GET /v1/templates", h.ListTemplates)
	mux.HandleFunc("POST /v1/templates", h.CreateTemplate)
	mux.HandleFunc("GET /v1/templates/{id}", h.GetTemplate)
	mux.HandleFunc("PUT /v1/templates/{id}", h.UpdateTemplate)
	mux.HandleFunc("DELETE /v1/templates/{id}", h.DeleteTemplate)

	mux.HandleFunc("GET /v1/keys", h.ListAPIKeys)
	mux.HandleFunc("POST /v1/keys", h.CreateAPIKey)
	mux.HandleFunc("DELETE /v1/keys/{id}", h.DeleteAPIKey)

	mux.HandleFunc("GET /v1/users", h.ListUsers)
	mux.HandleFunc("POST /v1/users", h.CreateUser)
	mux.HandleFunc("DELETE /v1/users/{id}", h.DeleteUser)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("messaging-console"))
	})

	return mux
}
