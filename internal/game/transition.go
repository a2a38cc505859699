package game

import (
	"fmt"

	"github.com/pavelanni/parley/internal/apperr"
)

// Action is what follows a judged user attempt.
type Action string

const (
	// ActionRetry keeps the turn open for another attempt.
	ActionRetry Action = "retry"
	// ActionContinue appends a regular system reply.
	ActionContinue Action = "continue"
	// ActionWrapUp appends the closing system line.
	ActionWrapUp Action = "wrapUp"
	// ActionComplete finishes and scores the game.
	ActionComplete Action = "complete"
)

type transitionKey struct {
	turns       int
	appropriate bool
}

// transitions is keyed by the number of turns once the judged user turn is
// counted.
var transitions = map[transitionKey]Action{
	{2, true}:  ActionContinue,
	{4, true}:  ActionContinue,
	{6, true}:  ActionWrapUp,
	{8, true}:  ActionComplete,
	{2, false}: ActionRetry,
	{4, false}: ActionRetry,
	{6, false}: ActionRetry,
	{8, false}: ActionRetry,
}

// Transition returns the action for a judged attempt on the user turn that
// brings the game to turnCount turns.
func Transition(turnCount int, appropriate bool) (Action, error) {
	a, ok := transitions[transitionKey{turnCount, appropriate}]
	if !ok {
		return "", apperr.New(apperr.KindInconsistentState,
			fmt.Sprintf("no transition for a user attempt at turn %d", turnCount))
	}
	return a, nil
}
