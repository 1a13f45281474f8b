package thread

import (
	"slices"

	"github.com/casualjim/ruminate/messages"
	"github.com/casualjim/ruminate/pkg/uuidx"
	"github.com/google/uuid"
)

// State is the conversation state of one session.
type State struct {
	id         uuid.UUID
	turns      messages.Turns
	rounds     int
	next       Node
	terminated bool
}

// New creates the state for a fresh session whose first turn is the request.
func New(request messages.Turn) *State {
	s := &State{id: uuidx.New()}
	if request != nil {
		s.turns = messages.Turns{request}
	}
	return s
}

// ID returns the session id.
func (s *State) ID() uuid.UUID {
	return s.id
}

// Len returns the number of turns.
func (s *State) Len() int {
	return len(s.turns)
}

// Turns returns a copy of the turns in chronological order.
func (s *State) Turns() []messages.Turn {
	return slices.Clone(s.turns)
}

// First returns the original request, or nil when there are no turns.
func (s *State) First() messages.Turn {
	if len(s.turns) == 0 {
		return nil
	}
	return s.turns[0]
}

// Last returns the most recent turn, or nil when there are no turns.
func (s *State) Last() messages.Turn {
	if len(s.turns) == 0 {
		return nil
	}
	return s.turns[len(s.turns)-1]
}

// LastOf returns the most recent turn with the given role.
func (s *State) LastOf(role messages.Role) (messages.Turn, bool) {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role() == role {
			return s.turns[i], true
		}
	}
	return nil, false
}

// Rounds returns the number of generate steps counted so far.
func (s *State) Rounds() int {
	return s.rounds
}

// Next returns the node the next step will run.
func (s *State) Next() Node {
	return s.next
}

// Terminated reports whether the loop has reached End.
func (s *State) Terminated() bool {
	return s.terminated
}

// Append adds a turn at the end of the conversation.
func (s *State) Append(t messages.Turn) {
	s.turns = append(s.turns, t)
}

// AddRounds adjusts the round counter by delta, which may be negative.
func (s *State) AddRounds(delta int) {
	s.rounds += delta
}

// SetNext records the node the next step runs.
func (s *State) SetNext(n Node) {
	s.next = n
}

// Terminate marks the state as finished. It is idempotent.
func (s *State) Terminate() {
	s.terminated = true
	s.next = End
}

// Reset returns the state to its default: no turns and no rounds. The id
// is kept so the session can still be reported on.
func (s *State) Reset() {
	s.turns = nil
	s.rounds = 0
}

// Checkpoint takes an immutable snapshot of the state.
func (s *State) Checkpoint() Checkpoint {
	return Checkpoint{
		ID:         s.id,
		Turns:      slices.Clone(s.turns),
		Rounds:     s.rounds,
		Next:       s.next,
		Terminated: s.terminated,
	}
}

// Checkpoint is a serializable snapshot of a State.
type Checkpoint struct {
	ID         uuid.UUID      `json:"id"`
	Turns      messages.Turns `json:"turns"`
	Rounds     int            `json:"rounds"`
	Next       Node           `json:"next"`
	Terminated bool           `json:"terminated"`
}

// Restore rebuilds a State from a checkpoint. A checkpoint without an id
// gets a fresh one.
func (c Checkpoint) Restore() *State {
	id := c.ID
	if id == uuid.Nil {
		id = uuidx.New()
	}
	return &State{
		id:         id,
		turns:      slices.Clone(c.Turns),
		rounds:     c.Rounds,
		next:       c.Next,
		terminated: c.Terminated,
	}
}

// MergeInto copies the checkpoint's progress onto an existing state with the
// same history prefix: turns beyond the target's length are appended and the
// counters are taken over.
func (c Checkpoint) MergeInto(s *State) {
	if len(c.Turns) > len(s.turns) {
		s.turns = append(s.turns, c.Turns[len(s.turns):]...)
	} else if len(c.Turns) < len(s.turns) {
		s.turns = slices.Clone(c.Turns)
	}
	s.rounds = c.Rounds
	s.next = c.Next
	s.terminated = c.Terminated
	if s.id == uuid.Nil {
		s.id = c.ID
	}
}
