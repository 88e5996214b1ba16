package state

import (
	"sync"

	"github.com/kimhsiao/driftwood/internal/models"
)

// Container owns the AppState. It is constructed at application start and
// passed by reference to consumers; there is no package-level instance.
// Dispatch serializes reducer applications, so no two can interleave, and
// Snapshot hands out copies only. All other mutation paths are closed off
// by Action being a sealed interface.
type Container struct {
	mu    sync.Mutex
	state AppState
}

// NewContainer creates a container holding the empty initial state.
func NewContainer() *Container {
	return &Container{
		state: AppState{Memories: []models.Memory{}},
	}
}

// Dispatch applies an action through the reducer.
func (c *Container) Dispatch(action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, action)
}

// Snapshot returns a copy of the current state. The memory slice and the
// first-encounter record are copied so callers cannot reach the
// container's backing data.
func (c *Container) Snapshot() AppState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	memories := make([]models.Memory, len(c.state.Memories))
	copy(memories, c.state.Memories)
	s.Memories = memories
	if c.state.FirstEncounter != nil {
		fe := *c.state.FirstEncounter
		s.FirstEncounter = &fe
	}
	return s
}
