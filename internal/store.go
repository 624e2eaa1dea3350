package internal

import (
	"sync"
)

// SessionStore owns the live message sequence for the active session. The
// sequence is replaced wholesale on session switch, never merged across
// sessions. An epoch counter increments on every reset or replace so that
// work started against an earlier transcript can detect it went stale.
//
// The reducer path runs on one goroutine, but voice callbacks and
// websocket notifications arrive on others, so access is mutex-guarded.
type SessionStore struct {
	mu        sync.Mutex
	sessionID string
	messages  []Message
	epoch     uint64
	input     string
}

// NewSessionStore returns a store with a fresh session identifier and an
// empty transcript.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessionID: NewSessionID()}
}

// SessionID returns the current session identifier.
func (s *SessionStore) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Epoch returns the current transcript epoch.
func (s *SessionStore) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Reset discards the transcript and starts a fresh session. Returns the
// new session identifier.
func (s *SessionStore) Reset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = NewSessionID()
	s.messages = nil
	s.epoch++
	return s.sessionID
}

// Replace installs a different session's transcript, discarding the
// current one.
func (s *SessionStore) Replace(sessionID string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.messages = append([]Message(nil), msgs...)
	s.epoch++
}

// Append adds messages to the end of the transcript.
func (s *SessionStore) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// AppendIfEpoch adds messages only when the transcript epoch still matches
// the one captured before the work started. Returns false when the append
// was dropped as stale.
func (s *SessionStore) AppendIfEpoch(epoch uint64, msgs ...Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.messages = append(s.messages, msgs...)
	return true
}

// Messages returns a copy of the transcript.
func (s *SessionStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the transcript length.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Last returns the final message, if any.
func (s *SessionStore) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ExtendLast appends text to the final message when it is a plain message
// of the given role. Tool-use, tool-result, and stage-result markers are
// structurally distinct turns and are never concatenated into. Returns
// false when no such message was open.
func (s *SessionStore) ExtendLast(role Role, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return false
	}
	last := &s.messages[len(s.messages)-1]
	if last.Role != role || !last.IsPlain() {
		return false
	}
	last.Content += text
	return true
}

// UpdateToolStatus sets the status of the tool-use message with the given
// id. Returns false when no such message exists.
func (s *SessionStore) UpdateToolStatus(id string, status ToolUseStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id && s.messages[i].IsToolUse {
			s.messages[i].ToolUseStatus = status
			return true
		}
	}
	return false
}

// SetInput stores the unsent input draft.
func (s *SessionStore) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input returns the unsent input draft.
func (s *SessionStore) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}
