package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/parley/internal/apperr"
	appI18n "github.com/pavelanni/parley/internal/i18n"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

// clientView is a learner as staff see them.
type clientView struct {
	model.User
	Profile proficiency.Profile `json:"profile"`
	Tier    proficiency.Tier    `json:"tier"`
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.store.ListUsers(ctx, model.UserRoleStandard)
	if err != nil {
		writeError(w, r, err)
		return
	}

	clients := make([]clientView, 0, len(users))
	for _, u := range users {
		p, err := h.store.Profile(ctx, u.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		clients = append(clients, clientView{User: u, Profile: p, Tier: proficiency.Classify(p, false)})
	}
	writeJSON(w, http.StatusOK, clients)
}

type createClientRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// handleCreateClient registers a learner account. Staff accounts are only
// seeded at startup.
func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Username == "" || req.Password == "" {
		writeError(w, r, apperr.New(apperr.KindValidation, "username and password are required"))
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	id, err := h.store.CreateUser(ctx, model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         model.UserRoleStandard,
		Active:       true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("client created", "username", req.Username, "by", model.UserFromContext(ctx).Username)
	writeJSON(w, http.StatusCreated, user)
}

// handleSetClientActive bans or reinstates the learner named in the path.
func (h *Handler) handleSetClientActive(active bool) http.HandlerFunc {
	msgID := "ClientBanned"
	if active {
		msgID = "ClientUnbanned"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := chi.URLParam(r, "username")
		if username == model.UserFromContext(ctx).Username {
			writeError(w, r, apperr.New(apperr.KindValidation, "you cannot change your own account"))
			return
		}
		if err := h.store.SetUserActive(ctx, username, active); err != nil {
			writeError(w, r, err)
			return
		}
		slog.Info("client access changed", "username", username, "active", active,
			"by", model.UserFromContext(ctx).Username)
		writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(ctx, msgID)})
	}
}

type baselineRequest struct {
	Username string `json:"username"`
	model.MindsBaseline
}

func (h *Handler) handleSetBaseline(w http.ResponseWriter, r *http.Request) {
	var req baselineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validateBaseline(req.Username, req.MindsBaseline); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.SetBaseline(r.Context(), req.Username, req.MindsBaseline); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("baseline set", "username", req.Username, "by", model.UserFromContext(r.Context()).Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "BaselineSaved")})
}

func validateBaseline(username string, b model.MindsBaseline) error {
	if username == "" {
		return apperr.New(apperr.KindValidation, "username is required")
	}
	if !b.Complete() {
		return apperr.New(apperr.KindValidation, "all five baseline metrics are required")
	}
	for _, v := range []*float64{b.Listening, b.EQ, b.Tone, b.Helpfulness, b.Clarity} {
		if *v < 0 || *v > 100 {
			return apperr.New(apperr.KindValidation, "baseline metrics must be between 0 and 100")
		}
	}
	return nil
}

func (h *Handler) handleClearBaseline(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := h.store.ClearBaseline(r.Context(), username); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("baseline removed", "username", username, "by", model.UserFromContext(r.Context()).Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "BaselineRemoved")})
}

type lockState struct {
	Locked  bool   `json:"locked"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	locked, err := h.store.UsageLocked(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lockState{Locked: locked})
}

func (h *Handler) handleSetLock(w http.ResponseWriter, r *http.Request) {
	var req lockState
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.SetUsageLocked(r.Context(), req.Locked); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("maintenance lock changed", "locked", req.Locked, "by", model.UserFromContext(r.Context()).Username)

	msgID := "MaintenanceOff"
	if req.Locked {
		msgID = "MaintenanceOn"
	}
	writeJSON(w, http.StatusOK, lockState{Locked: req.Locked, Message: appI18n.T(r.Context(), msgID)})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.ExportAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}
