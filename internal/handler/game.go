package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/game"
	appI18n "github.com/pavelanni/parley/internal/i18n"
	"github.com/pavelanni/parley/internal/model"
)

func (h *Handler) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.store.ListScenarios(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	games, err := h.store.ListGamesForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

type startRequest struct {
	ScenarioID string `json:"scenarioID"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := model.UserFromContext(r.Context())
	snap, err := h.games.StartSession(r.Context(), user.ID, req.ScenarioID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := model.SnapshotOptions{
		IncludeTurns:    queryBool(q.Get("includeDialogues")),
		IncludeScenario: queryBool(q.Get("includeScenario")),
	}
	user := model.UserFromContext(r.Context())
	snap, err := h.games.GetActive(r.Context(), user.ID, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type attemptRequest struct {
	Content   string  `json:"content"`
	TimeTaken float64 `json:"timeTaken"`
}

type attemptResponse struct {
	*game.Outcome
	Message string `json:"message"`
}

func (h *Handler) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := model.UserFromContext(r.Context())
	out, err := h.games.SubmitAttempt(r.Context(), user.ID, req.Content, req.TimeTaken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	resp := attemptResponse{Outcome: out}
	switch out.Status {
	case game.ActionRetry:
		resp.Message = appI18n.T(ctx, "TryAgain")
	case game.ActionComplete:
		resp.Message = resultMessage(r, out.Result)
	default:
		resp.Message = appI18n.T(ctx, "KeepGoing")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAbandon(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if err := h.games.AbandonSession(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "SessionAbandoned")})
}

type evaluationResponse struct {
	*game.EvaluationResult
	Message string `json:"message"`
}

func (h *Handler) handleRequestEvaluation(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		writeError(w, r, apperr.New(apperr.KindValidation, "game ID is required"))
		return
	}
	res, err := h.games.RequestEvaluation(r.Context(), gameID, model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluationResponse{EvaluationResult: res, Message: resultMessage(r, res)})
}

func resultMessage(r *http.Request, res *game.EvaluationResult) string {
	msg := appI18n.Tp(r.Context(), "PointsEarned", res.PointsEarned)
	if res.EvaluationFailed {
		msg += " " + appI18n.T(r.Context(), "EvaluationPending")
	}
	return msg
}

func queryBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
