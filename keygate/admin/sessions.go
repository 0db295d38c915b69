// Package admin tracks the operator's short-lived menu intents: which
// handler the operator's next free-text message should be routed to.
package admin

import "sync"

// Intent tags what the operator's next plain-text message means.
type Intent int

const (
	IntentNone Intent = iota
	IntentAddKeys
	IntentAddChannel
	IntentRemoveChannel
	IntentSetCooldown
	IntentSetTemplate
)

// Sessions is a process-local intent table keyed by operator identity.
// It is deliberately not persisted: a restart clears all pending
// intents.
type Sessions struct {
	mu      sync.Mutex
	intents map[int64]Intent
}

func NewSessions() *Sessions {
	return &Sessions{intents: make(map[int64]Intent)}
}

func (s *Sessions) Set(operatorID int64, intent Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[operatorID] = intent
}

// Consume returns the pending intent and clears it unconditionally,
// so a message that later fails to parse cannot wedge the operator.
func (s *Sessions) Consume(operatorID int64) Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[operatorID]
	if !ok {
		return IntentNone
	}
	delete(s.intents, operatorID)
	return intent
}

func (s *Sessions) Clear(operatorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, operatorID)
}
