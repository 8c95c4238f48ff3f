package console

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryReportsWorkspaceCount(t *testing.T) {
	f := newFixture(t, threeGuests()...)
	var (
		mu   sync.Mutex
		seen []int
	)
	f.registry.ReportTo(func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})

	a, _ := f.registry.Acquire("")
	f.registry.Acquire("")
	f.registry.Acquire(a.ID())
	f.registry.Dispose(a.ID())
	f.registry.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 1, 0}, seen)
}

func TestAcquireIgnoresUnknownID(t *testing.T) {
	f := newFixture(t)

	ws, created := f.registry.Acquire("not-a-workspace")

	assert.True(t, created)
	assert.NotEqual(t, "not-a-workspace", ws.ID())
	assert.False(t, f.registry.Dispose("not-a-workspace"))
}
