package game

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/gateway"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

// Config holds operator switches for the controller.
type Config struct {
	// ForceEasy prompts every user at the easy tier.
	ForceEasy bool
}

// Controller is the entry point for game operations on behalf of a user.
type Controller struct {
	store Store
	gw    gateway.Gateway
	turns *TurnManager
	users keyedGuard
	cfg   Config
}

func NewController(st Store, gw gateway.Gateway, cfg Config) *Controller {
	return &Controller{
		store: st,
		gw:    gw,
		turns: NewTurnManager(st, st, st, gw),
		cfg:   cfg,
	}
}

// StartSession starts a game on the scenario and returns it with its opening
// turn.
func (c *Controller) StartSession(ctx context.Context, userID int64, scenarioRef string) (*model.GameSnapshot, error) {
	if err := c.checkGate(ctx); err != nil {
		return nil, err
	}
	scenarioRef = strings.TrimSpace(scenarioRef)
	if scenarioRef == "" {
		return nil, apperr.New(apperr.KindValidation, "scenario is required")
	}
	unlock, err := c.lockUser(userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	active, err := c.store.ActiveGame(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if active.Status == model.GameOngoing {
			return nil, apperr.New(apperr.KindConflict, "user already has an active game")
		}
		if err := c.store.ClearActiveGame(ctx, userID); err != nil {
			return nil, err
		}
	}

	sc, err := c.store.GetScenario(ctx, scenarioRef)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, apperr.New(apperr.KindNotFound, "scenario not found")
	}
	if !c.gw.Available() {
		return nil, apperr.New(apperr.KindServiceUnavailable, "language model is disabled")
	}

	tier, err := c.tier(ctx, userID)
	if err != nil {
		return nil, err
	}
	opening, err := c.gw.GenerateOpening(ctx, sc, tier)
	if err != nil {
		return nil, err
	}
	g, err := c.store.CreateGame(ctx, userID, sc.ID, opening)
	if err != nil {
		return nil, err
	}
	slog.Info("game started", "game_id", g.ID, "user_id", userID, "scenario", sc.Name, "tier", tier)

	return c.snapshot(ctx, g, model.SnapshotOptions{IncludeTurns: true, IncludeScenario: true})
}

// AbandonSession ends the user's ongoing game.
func (c *Controller) AbandonSession(ctx context.Context, userID int64) error {
	if err := c.checkGate(ctx); err != nil {
		return err
	}
	unlock, err := c.lockUser(userID)
	if err != nil {
		return err
	}
	defer unlock()

	active, err := c.store.ActiveGame(ctx, userID)
	if err != nil {
		return err
	}
	if active == nil {
		return apperr.New(apperr.KindNotFound, "no active game")
	}
	if active.Status != model.GameOngoing {
		if err := c.store.ClearActiveGame(ctx, userID); err != nil {
			return err
		}
		return apperr.New(apperr.KindNotFound, "no active game")
	}
	if err := c.store.AbandonGame(ctx, active.ID); err != nil {
		return err
	}
	slog.Info("game abandoned", "game_id", active.ID, "user_id", userID)
	return nil
}

// GetActive returns the user's ongoing game. It never changes state.
func (c *Controller) GetActive(ctx context.Context, userID int64, opts model.SnapshotOptions) (*model.GameSnapshot, error) {
	active, err := c.store.ActiveGame(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil || active.Status != model.GameOngoing {
		return nil, apperr.New(apperr.KindNotFound, "no active game")
	}
	return c.snapshot(ctx, active, opts)
}

// SubmitAttempt submits content for the open user turn of the user's game.
func (c *Controller) SubmitAttempt(ctx context.Context, userID int64, content string, timeTaken float64) (*Outcome, error) {
	if err := c.checkGate(ctx); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.KindValidation, "content is required")
	}
	if timeTaken < 0 {
		return nil, apperr.New(apperr.KindValidation, "time taken cannot be negative")
	}

	active, err := c.store.ActiveGame(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apperr.New(apperr.KindNotFound, "no active game")
	}
	tier, err := c.tier(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.turns.SubmitAttempt(ctx, active.ID, content, timeTaken, tier)
}

// RequestEvaluation evaluates a completed game. The owner may do this only
// while the game has no evaluation; staff may repeat it, replacing the
// previous evaluation and its points.
func (c *Controller) RequestEvaluation(ctx context.Context, gameID string, requester *model.User) (*EvaluationResult, error) {
	if requester == nil {
		return nil, apperr.New(apperr.KindForbidden, "authentication required")
	}
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil || (g.UserID != requester.ID && !requester.IsStaff()) {
		return nil, apperr.New(apperr.KindNotFound, "game not found")
	}
	if g.Status != model.GameComplete {
		return nil, apperr.New(apperr.KindConflict, "game is not complete")
	}

	existing, err := c.store.GetEvaluation(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !requester.IsStaff() {
		return nil, apperr.New(apperr.KindConflict, "game has already been evaluated")
	}
	if !c.gw.Available() {
		return nil, apperr.New(apperr.KindServiceUnavailable, "language model is disabled")
	}
	return c.turns.Reevaluate(ctx, g)
}

// tier returns the difficulty tier prompts use for the user.
func (c *Controller) tier(ctx context.Context, userID int64) (proficiency.Tier, error) {
	p, err := c.store.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return proficiency.Classify(p, c.cfg.ForceEasy), nil
}

func (c *Controller) checkGate(ctx context.Context) error {
	locked, err := c.store.UsageLocked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return apperr.New(apperr.KindServiceUnavailable, "practice is paused for maintenance")
	}
	return nil
}

func (c *Controller) lockUser(userID int64) (func(), error) {
	unlock, ok := c.users.tryLock(strconv.FormatInt(userID, 10))
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "another request for this user is in progress")
	}
	return unlock, nil
}

func (c *Controller) snapshot(ctx context.Context, g *model.Game, opts model.SnapshotOptions) (*model.GameSnapshot, error) {
	snap := &model.GameSnapshot{Game: *g}
	if opts.IncludeTurns {
		turns, err := c.store.ListTurns(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		snap.Turns = turns
	}
	if opts.IncludeScenario {
		sc, err := c.store.GetScenario(ctx, g.ScenarioID)
		if err != nil {
			return nil, err
		}
		snap.Scenario = sc
	}
	if opts.IncludeEvaluation {
		eval, err := c.store.GetEvaluation(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		snap.Evaluation = eval
	}
	return snap, nil
}
