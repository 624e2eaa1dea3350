package internal

import (
	"testing"
)

func TestStoreFreshSessionID(t *testing.T) {
	s := NewSessionStore()
	if len(s.SessionID()) != sessionIDLength {
		t.Errorf("Expected %d-char session id, got %d", sessionIDLength, len(s.SessionID()))
	}
}

func TestStoreResetIsFresh(t *testing.T) {
	s := NewSessionStore()
	s.Append(CreateTestMessage(RoleUser, "hello"))
	first := s.SessionID()

	second := s.Reset()
	if second == first {
		t.Error("Reset must mint a new session id")
	}
	if s.Len() != 0 {
		t.Errorf("Reset must clear the transcript, got %d messages", s.Len())
	}

	third := s.Reset()
	if third == second {
		t.Error("Consecutive resets must each mint a new id")
	}
}

func TestStoreEpochGuard(t *testing.T) {
	s := NewSessionStore()
	epoch := s.Epoch()

	if !s.AppendIfEpoch(epoch, CreateTestMessage(RoleAssistant, "fresh")) {
		t.Fatal("Append with a current epoch must succeed")
	}

	s.Reset()
	if s.AppendIfEpoch(epoch, CreateTestMessage(RoleAssistant, "stale")) {
		t.Fatal("Append with a stale epoch must be dropped")
	}
	if s.Len() != 0 {
		t.Errorf("Stale append leaked into the transcript: %d messages", s.Len())
	}
}

func TestStoreReplaceBumpsEpoch(t *testing.T) {
	s := NewSessionStore()
	before := s.Epoch()
	s.Replace("other-session", CreateTestTranscript(1))
	if s.Epoch() == before {
		t.Error("Replace must bump the epoch")
	}
	if s.SessionID() != "other-session" {
		t.Errorf("Replace must install the session id, got %q", s.SessionID())
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 messages, got %d", s.Len())
	}
}

func TestStoreExtendLast(t *testing.T) {
	s := NewSessionStore()
	s.Append(CreateTestMessage(RoleAssistant, "Hel"))

	if !s.ExtendLast(RoleAssistant, "lo") {
		t.Fatal("ExtendLast should succeed on an open plain message")
	}
	last, _ := s.Last()
	if last.Content != "Hello" {
		t.Errorf("Expected %q, got %q", "Hello", last.Content)
	}

	if s.ExtendLast(RoleUser, "x") {
		t.Error("ExtendLast must not cross roles")
	}

	s.Append(Message{ID: "t1", Role: RoleAssistant, IsToolUse: true, ToolUseName: "search", ToolUseStatus: ToolStatusRunning})
	if s.ExtendLast(RoleAssistant, "x") {
		t.Error("ExtendLast must not extend a tool-use marker")
	}
}

func TestStoreUpdateToolStatus(t *testing.T) {
	s := NewSessionStore()
	s.Append(Message{ID: "t1", Role: RoleAssistant, IsToolUse: true, ToolUseName: "search", ToolUseStatus: ToolStatusRunning})

	if !s.UpdateToolStatus("t1", ToolStatusSuccess) {
		t.Fatal("Expected status update to find the tool message")
	}
	last, _ := s.Last()
	if last.ToolUseStatus != ToolStatusSuccess {
		t.Errorf("Expected success status, got %s", last.ToolUseStatus)
	}

	if s.UpdateToolStatus("missing", ToolStatusError) {
		t.Error("Unknown id must report false")
	}
}
