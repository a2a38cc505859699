// Package handler exposes the practice engine over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/game"
	appI18n "github.com/pavelanni/parley/internal/i18n"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	games *game.Controller
}

// New creates a new Handler.
func New(s *store.Store, games *game.Controller) *Handler {
	return &Handler{store: s, games: games}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/identity/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/identity/logout", h.handleLogout)
		r.Get("/identity/me", h.handleMe)

		r.Route("/game", func(r chi.Router) {
			r.Get("/scenarios", h.handleListScenarios)
			r.Get("/history", h.handleHistory)
			r.Post("/start", h.handleStart)
			r.Get("/active", h.handleActive)
			r.Post("/attempt", h.handleAttempt)
			r.Post("/abandon", h.handleAbandon)
			r.Post("/{gameID}/evaluation", h.handleRequestEvaluation)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStaff))
			r.Get("/clients", h.handleListClients)
			r.Post("/clients", h.handleCreateClient)
			r.Post("/clients/{username}/ban", h.handleSetClientActive(false))
			r.Post("/clients/{username}/unban", h.handleSetClientActive(true))
			r.Post("/minds", h.handleSetBaseline)
			r.Delete("/minds/{username}", h.handleClearBaseline)
			r.Get("/lock", h.handleLockStatus)
			r.Post("/lock", h.handleSetLock)
			r.Get("/export", h.handleExport)
		})
	})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"`
}

var kindMessages = map[apperr.Kind]string{
	apperr.KindValidation:         "ErrValidation",
	apperr.KindConflict:           "ErrConflict",
	apperr.KindNotFound:           "ErrNotFound",
	apperr.KindForbidden:          "ErrForbidden",
	apperr.KindServiceUnavailable: "ErrServiceUnavailable",
	apperr.KindInconsistentState:  "ErrInconsistentState",
	apperr.KindExternalCall:       "ErrExternalCall",
	apperr.KindInternal:           "ErrInternal",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps err to its HTTP status and a localized message. Internal
// errors are logged and their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	resp := errorResponse{Error: kind, Message: appI18n.T(r.Context(), kindMessages[kind])}

	var ae *apperr.Error
	switch {
	case kind == apperr.KindInternal:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case errors.As(err, &ae):
		resp.Detail = ae.Message
		slog.Debug("request rejected", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, kind.HTTPStatus(), resp)
}

// writeMessage writes a localized error for failures outside the engine.
func writeMessage(w http.ResponseWriter, r *http.Request, status int, kind apperr.Kind, msgID string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: appI18n.T(r.Context(), msgID)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, r, http.StatusBadRequest, apperr.KindValidation, "BadRequestBody")
		return false
	}
	return true
}
