package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/parley/internal/apperr"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		turns       int
		appropriate bool
		want        Action
	}{
		{2, true, ActionContinue},
		{4, true, ActionContinue},
		{6, true, ActionWrapUp},
		{8, true, ActionComplete},
		{2, false, ActionRetry},
		{8, false, ActionRetry},
	}
	for _, tt := range tests {
		got, err := Transition(tt.turns, tt.appropriate)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "turns=%d appropriate=%v", tt.turns, tt.appropriate)
	}
}

func TestTransitionInvalid(t *testing.T) {
	for _, turns := range []int{0, 1, 3, 7, 9, 10} {
		_, err := Transition(turns, true)
		assert.True(t, apperr.IsKind(err, apperr.KindInconsistentState), "turns=%d", turns)
	}
}

func TestKeyedGuardReacquire(t *testing.T) {
	var g keyedGuard

	unlock, ok := g.tryLock("a")
	require.True(t, ok)

	_, ok = g.tryLock("a")
	assert.False(t, ok, "held key must be refused")

	unlockB, ok := g.tryLock("b")
	require.True(t, ok, "other keys are independent")
	unlockB()

	unlock()
	unlock2, ok := g.tryLock("a")
	assert.True(t, ok, "released key can be taken again")
	unlock2()
}
