package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloq/docchat/internal"
)

// ScriptedInvoker replays a fixed event script for each invocation.
type ScriptedInvoker struct {
	Events    []internal.StreamEvent
	FinalText string
	Err       error

	mu      sync.Mutex
	Calls   int
	LastSID string
}

// Invoke implements internal.AgentInvoker.
func (s *ScriptedInvoker) Invoke(ctx context.Context, blocks []internal.ContentBlock, sessionID, projectID string, onEvent internal.StreamFunc, agentID, runtimeOverride string) (string, error) {
	s.mu.Lock()
	s.Calls++
	s.LastSID = sessionID
	s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	for _, ev := range s.Events {
		onEvent(ev)
	}
	return s.FinalText, nil
}

// StubAPI serves canned session listings and histories.
type StubAPI struct {
	mu        sync.Mutex
	Pages     map[string]internal.SessionPage      // keyed by cursor ("" for the first page)
	Histories map[string]*internal.HistoryResponse // keyed by session id
	ListErr   error
	HistErr   error

	Renamed map[string]string
	Deleted []string
}

// ListSessions implements internal.SessionAPI.
func (s *StubAPI) ListSessions(ctx context.Context, projectID, cursor string) (internal.SessionPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return internal.SessionPage{}, s.ListErr
	}
	return s.Pages[cursor], nil
}

// SessionHistory implements internal.SessionAPI.
func (s *StubAPI) SessionHistory(ctx context.Context, projectID, sessionID string) (*internal.HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HistErr != nil {
		return nil, s.HistErr
	}
	if history, ok := s.Histories[sessionID]; ok {
		return history, nil
	}
	return &internal.HistoryResponse{SessionID: sessionID}, nil
}

// RenameSession implements internal.SessionAPI.
func (s *StubAPI) RenameSession(ctx context.Context, projectID, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Renamed == nil {
		s.Renamed = make(map[string]string)
	}
	s.Renamed[sessionID] = name
	return nil
}

// DeleteSession implements internal.SessionAPI.
func (s *StubAPI) DeleteSession(ctx context.Context, projectID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, sessionID)
	return nil
}

// RecordingNotifier captures notifications for assertions.
type RecordingNotifier struct {
	mu       sync.Mutex
	Infos    []string
	Warnings []string
	Errors   []string
}

func (n *RecordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Infos = append(n.Infos, msg)
}

func (n *RecordingNotifier) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Warnings = append(n.Warnings, msg)
}

func (n *RecordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, msg)
}

// FakeVoiceChannel is a controllable VoiceChannel for tests.
type FakeVoiceChannel struct {
	mu       sync.Mutex
	status   internal.VoiceStatus
	Sent     []string
	Connects []internal.VoiceModel

	// ConnectStatus is the status Connect leaves the channel in
	// (defaults to connected).
	ConnectStatus internal.VoiceStatus
}

func (f *FakeVoiceChannel) Connect(model internal.VoiceModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects = append(f.Connects, model)
	f.status = f.ConnectStatus
	if f.status == "" {
		f.status = internal.VoiceConnected
	}
	return nil
}

func (f *FakeVoiceChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = internal.VoiceIdle
}

func (f *FakeVoiceChannel) Status() internal.VoiceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *FakeVoiceChannel) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != internal.VoiceConnected {
		return fmt.Errorf("voice channel is not connected")
	}
	f.Sent = append(f.Sent, text)
	return nil
}

// SetStatus overrides the channel state directly.
func (f *FakeVoiceChannel) SetStatus(status internal.VoiceStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}
