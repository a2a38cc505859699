package game

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardSize(g *keyedGuard) int {
	n := 0
	g.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestKeyedGuard(t *testing.T) {
	var g keyedGuard

	unlock, ok := g.tryLock("game-1")
	require.True(t, ok)
	_, ok = g.tryLock("game-1")
	assert.False(t, ok, "busy key is refused")

	other, ok := g.tryLock("game-2")
	require.True(t, ok, "keys are independent")
	other()

	unlock()
	assert.Equal(t, 0, guardSize(&g), "unlocked keys are dropped")

	unlock, ok = g.tryLock("game-1")
	require.True(t, ok)
	unlock()
}

func TestKeyedGuardConcurrent(t *testing.T) {
	var g keyedGuard
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders = map[string]int{}
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := strconv.Itoa(i % 4)
			for j := 0; j < 50; j++ {
				unlock, ok := g.tryLock(key)
				if !ok {
					continue
				}
				mu.Lock()
				holders[key]++
				assert.Equal(t, 1, holders[key], "two holders for key %s", key)
				mu.Unlock()

				mu.Lock()
				holders[key]--
				mu.Unlock()
				unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, guardSize(&g))
}
