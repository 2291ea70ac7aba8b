// Package session drives the two-question subscription setup dialogue.
package session

import (
	"sync"

	"realty_bot/internal/parse"
)

// State is a step of the setup dialogue.
type State int

// Dialogue states.
const (
	StateIdle State = iota
	StateAwaitingPrice
	StateAwaitingDistance
)

// Outcome classifies the effect of feeding one message into a session.
type Outcome int

// Possible outcomes of Input.
const (
	// OutcomeNone means the chat has no active session; the message is not
	// part of a setup dialogue.
	OutcomeNone Outcome = iota
	// OutcomeNeedDistance means the price was accepted and the distance
	// question should be asked.
	OutcomeNeedDistance
	// OutcomeCommitted means both answers were accepted; the session is
	// destroyed and MaxPrice/MaxDistance carry the result.
	OutcomeCommitted
	// OutcomeInvalid means the message was not a non-negative integer; the
	// session stays in its current state and should be re-prompted.
	OutcomeInvalid
)

// Result is the typed outcome of one dialogue step. State is the session's
// state after the step, so the caller knows which question to re-ask on
// OutcomeInvalid.
type Result struct {
	Outcome     Outcome
	State       State
	MaxPrice    int64
	MaxDistance int64
}

type dialogue struct {
	state    State
	maxPrice int64
}

// Registry holds the active setup sessions, one per chat. Sessions are
// memory-only; an abandoned session simply stays until overwritten or the
// process restarts.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*dialogue
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*dialogue)}
}

// Begin starts (or restarts) the setup dialogue for a chat.
func (r *Registry) Begin(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[chatID] = &dialogue{state: StateAwaitingPrice}
}

// Cancel discards the chat's session, if any, and reports whether one existed.
func (r *Registry) Cancel(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[chatID]
	delete(r.sessions, chatID)
	return ok
}

// Active reports whether the chat has a session in progress.
func (r *Registry) Active(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[chatID]
	return ok
}

// Input feeds one free-text message into the chat's session and returns the
// transition result. On OutcomeCommitted the session is removed.
func (r *Registry) Input(chatID int64, text string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.sessions[chatID]
	if !ok {
		return Result{Outcome: OutcomeNone}
	}

	v, ok := parse.PositiveInt(text)
	if !ok {
		return Result{Outcome: OutcomeInvalid, State: d.state}
	}

	switch d.state {
	case StateAwaitingPrice:
		d.maxPrice = v
		d.state = StateAwaitingDistance
		return Result{Outcome: OutcomeNeedDistance, State: d.state}
	case StateAwaitingDistance:
		delete(r.sessions, chatID)
		return Result{Outcome: OutcomeCommitted, MaxPrice: d.maxPrice, MaxDistance: v}
	default:
		delete(r.sessions, chatID)
		return Result{Outcome: OutcomeNone}
	}
}
