// Package state holds the in-memory application state for the journal UI
// and the closed action set that mutates it.
package state

import "github.com/kimhsiao/driftwood/internal/models"

// AppState is the single in-memory source of truth for consumers.
// Memories are kept newest first. Snapshots are value copies; consumers
// never see the container's own slices.
type AppState struct {
	Memories       []models.Memory
	FirstEncounter *models.FirstEncounter
	Loading        bool
	Err            string
}

// Action is the closed set of state transitions. Only types in this
// package implement it.
type Action interface {
	isAction()
}

// SetLoading replaces the loading flag.
type SetLoading struct {
	Loading bool
}

// SetError replaces the error field. An empty message clears it.
type SetError struct {
	Message string
}

// SetMemories replaces the memory list wholesale.
type SetMemories struct {
	Memories []models.Memory
}

// AddMemory prepends a memory to the list.
type AddMemory struct {
	Memory models.Memory
}

// UpdateMemory replaces the entry whose id matches; no-op when absent.
type UpdateMemory struct {
	Memory models.Memory
}

// DeleteMemory removes the entry with the given id.
type DeleteMemory struct {
	ID models.UUID
}

// SetFirstEncounter replaces the first-encounter snapshot.
type SetFirstEncounter struct {
	Encounter models.FirstEncounter
}

func (SetLoading) isAction()        {}
func (SetError) isAction()          {}
func (SetMemories) isAction()       {}
func (AddMemory) isAction()         {}
func (UpdateMemory) isAction()      {}
func (DeleteMemory) isAction()      {}
func (SetFirstEncounter) isAction() {}

// Reduce applies one action to the state and returns the next state.
// It is pure: the input state and its slices are never mutated, and an
// unrecognized action returns the state unchanged.
func Reduce(s AppState, action Action) AppState {
	switch a := action.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Err = a.Message
	case SetMemories:
		memories := make([]models.Memory, len(a.Memories))
		copy(memories, a.Memories)
		s.Memories = memories
	case AddMemory:
		memories := make([]models.Memory, 0, len(s.Memories)+1)
		memories = append(memories, a.Memory)
		memories = append(memories, s.Memories...)
		s.Memories = memories
	case UpdateMemory:
		memories := make([]models.Memory, len(s.Memories))
		copy(memories, s.Memories)
		for i := range memories {
			if memories[i].ID == a.Memory.ID {
				memories[i] = a.Memory
			}
		}
		s.Memories = memories
	case DeleteMemory:
		memories := make([]models.Memory, 0, len(s.Memories))
		for _, m := range s.Memories {
			if m.ID != a.ID {
				memories = append(memories, m)
			}
		}
		s.Memories = memories
	case SetFirstEncounter:
		fe := a.Encounter
		s.FirstEncounter = &fe
	default:
		// Unknown actions fall through to the unchanged state.
	}
	return s
}
