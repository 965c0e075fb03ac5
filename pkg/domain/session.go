package domain

import "time"

// Session is the per-user conversation snapshot.
type Session struct {
	UserID string `json:"user_id"`

	// State is where the last turn stopped: DONE, ASK_INPUT, or VALIDATE_INPUT
	// after a reset.
	State State `json:"state"`

	// Slots accumulate across the ASK_INPUT loop and are cleared at DONE.
	Slots Slots `json:"slots"`

	// PendingIntent is the intent being completed while parked at ASK_INPUT.
	PendingIntent Intent `json:"pending_intent,omitempty"`

	// Missing lists the slots the last clarification asked for.
	Missing []Field `json:"missing,omitempty"`

	// Resume holds an action awaiting confirmation. It outlives DONE.
	Resume *PendingAction `json:"resume,omitempty"`

	LastResult *ActionResult `json:"last_result,omitempty"`
	Turn       uint64        `json:"turn"`
	History    []Message     `json:"history"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewSession creates a session waiting for its first message.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		State:     StateValidateInput,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Park suspends the session at ASK_INPUT until the missing slots arrive.
func (s *Session) Park(intent Intent, slots Slots, missing []Field) {
	s.State = StateAskInput
	s.PendingIntent = intent
	s.Slots = slots
	s.Missing = missing
}

// Finish marks the turn complete and clears the slot accumulator.
func (s *Session) Finish() {
	s.State = StateDone
	s.Slots = Slots{}
	s.PendingIntent = ""
	s.Missing = nil
}

// Reset discards any in-flight work and returns to VALIDATE_INPUT.
// History is kept.
func (s *Session) Reset() {
	s.Finish()
	s.State = StateValidateInput
	s.Resume = nil
}

// Append adds msg to the history, keeping at most limit entries (0 = unbounded).
func (s *Session) Append(msg Message, limit int) {
	s.History = append(s.History, msg)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Message(nil), s.History[len(s.History)-limit:]...)
	}
}

// Tail returns up to the last n history entries.
func (s *Session) Tail(n int) []Message {
	if n <= 0 || n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Idle reports whether the session has not been touched for longer than ttl.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Missing = append([]Field(nil), s.Missing...)
	out.History = append([]Message(nil), s.History...)
	if s.Resume != nil {
		r := *s.Resume
		out.Resume = &r
	}
	if s.LastResult != nil {
		r := *s.LastResult
		r.Mutations = nil
		out.LastResult = &r
	}
	return &out
}
