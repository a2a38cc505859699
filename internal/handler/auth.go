package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/parley/internal/apperr"
	appI18n "github.com/pavelanni/parley/internal/i18n"
	"github.com/pavelanni/parley/internal/model"
)

// TokenHeader carries the opaque auth token returned by login.
const TokenHeader = "AuthToken"

func tokenFromRequest(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	if t, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

// requireAuth resolves the request token to an active user.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeMessage(w, r, http.StatusUnauthorized, apperr.KindForbidden, "Unauthorized")
			return
		}

		user, err := h.store.TokenUser(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user == nil {
			writeMessage(w, r, http.StatusUnauthorized, apperr.KindForbidden, "Unauthorized")
			return
		}
		if !user.Active {
			writeMessage(w, r, http.StatusForbidden, apperr.KindForbidden, "AccountBanned")
			return
		}

		next.ServeHTTP(w, r.WithContext(model.ContextWithUser(r.Context(), user)))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeMessage(w, r, http.StatusUnauthorized, apperr.KindForbidden, "Unauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeMessage(w, r, http.StatusForbidden, apperr.KindForbidden, "StaffOnly")
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeMessage(w, r, http.StatusUnauthorized, apperr.KindForbidden, "LoginError")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeMessage(w, r, http.StatusUnauthorized, apperr.KindForbidden, "LoginError")
		return
	}
	if !user.Active {
		writeMessage(w, r, http.StatusForbidden, apperr.KindForbidden, "AccountBanned")
		return
	}

	token, err := h.store.IssueToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)

	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:   token,
		User:    user,
		Message: appI18n.Td(r.Context(), "Welcome", map[string]any{"Name": name}),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RevokeToken(r.Context(), tokenFromRequest(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "LoggedOut")})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}
