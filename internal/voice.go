package internal

import (
	"sync"
	"time"
)

// VoiceStatus is the lifecycle state of a voice-chat connection.
type VoiceStatus string

const (
	VoiceIdle       VoiceStatus = "idle"
	VoiceConnecting VoiceStatus = "connecting"
	VoiceConnected  VoiceStatus = "connected"
	VoiceError      VoiceStatus = "error"
)

// VoiceChannel is the provider-side transport for a voice session. The
// core treats it as a black box delivering transcript fragments and tool
// lifecycle events via callbacks.
type VoiceChannel interface {
	Connect(model VoiceModel) error
	Disconnect()
	Status() VoiceStatus
	SendText(text string) error
}

// VoiceMerger merges a provider's transcript fragment stream into the
// session store. Providers disagree about what isFinal means, so the merge
// rule is chosen per model:
//
//   - gemini: non-final fragments are the authoritative incremental text;
//     final fragments are informational and ignored entirely.
//   - nova_sonic: same delta behavior, but a final fragment additionally
//     guarantees message-boundary closure: when the delta stream was
//     interrupted and no open message of the right role exists, the final
//     fragment opens one with the full text.
//   - openai: final-only; non-final fragments are ignored.
type VoiceMerger struct {
	store *SessionStore
	model VoiceModel

	now   func() time.Time
	newID func() string
}

// NewVoiceMerger creates a merger for the given provider model.
func NewVoiceMerger(store *SessionStore, model VoiceModel) *VoiceMerger {
	return &VoiceMerger{
		store: store,
		model: model,
		now:   time.Now,
		newID: NewMessageID,
	}
}

// Model returns the provider model this merger applies rules for.
func (vm *VoiceMerger) Model() VoiceModel {
	return vm.model
}

// OnTranscript folds one transcript fragment into the transcript.
func (vm *VoiceMerger) OnTranscript(text string, role Role, isFinal bool) {
	switch vm.model {
	case VoiceGemini:
		if isFinal {
			return
		}
		vm.appendDelta(text, role)
	case VoiceNovaSonic:
		if isFinal {
			// Ordering fallback: only open a message when the delta stream
			// left none of the right role open.
			if _, open := vm.openMessage(role); !open {
				vm.store.Append(vm.newPlain(text, role))
			}
			return
		}
		vm.appendDelta(text, role)
	case VoiceOpenAI:
		if !isFinal {
			return
		}
		vm.appendDelta(text, role)
	default:
		LogWarn("Unknown voice model %q, dropping transcript fragment", vm.model)
	}
}

// OnToolUse folds one tool lifecycle event. A "started" status appends a
// running tool-use message keyed by toolUseID; later statuses update that
// message in place.
func (vm *VoiceMerger) OnToolUse(toolName, toolUseID string, status ToolUseStatus) {
	if status == ToolStatusRunning {
		vm.store.Append(Message{
			ID:            toolUseID,
			Role:          RoleAssistant,
			Content:       toolName,
			Timestamp:     vm.now(),
			IsToolUse:     true,
			ToolUseName:   toolName,
			ToolUseStatus: ToolStatusRunning,
		})
		return
	}
	if !vm.store.UpdateToolStatus(toolUseID, status) {
		LogDebug("Tool status %q for unknown tool use %s", status, toolUseID)
	}
}

func (vm *VoiceMerger) appendDelta(text string, role Role) {
	if vm.store.ExtendLast(role, text) {
		return
	}
	vm.store.Append(vm.newPlain(text, role))
}

func (vm *VoiceMerger) openMessage(role Role) (Message, bool) {
	last, ok := vm.store.Last()
	if !ok || last.Role != role || !last.IsPlain() {
		return Message{}, false
	}
	return last, true
}

func (vm *VoiceMerger) newPlain(text string, role Role) Message {
	return Message{
		ID:        vm.newID(),
		Role:      role,
		Content:   text,
		Timestamp: vm.now(),
	}
}

// VoiceManager owns the voice connection lifecycle around a merger: text
// sent while the channel is still connecting is parked and flushed once
// connected, and streaming state is cleared whenever the connection leaves
// the connected state.
type VoiceManager struct {
	mu      sync.Mutex
	channel VoiceChannel
	merger  *VoiceMerger
	store   *SessionStore

	pendingText string
	lastStatus  VoiceStatus

	// ClearBlocks is invoked when the connection leaves connected state;
	// the orchestrator wires it to discard streaming blocks.
	ClearBlocks func()
}

// NewVoiceManager creates a manager for one voice session.
func NewVoiceManager(store *SessionStore, channel VoiceChannel, model VoiceModel) *VoiceManager {
	return &VoiceManager{
		channel:    channel,
		merger:     NewVoiceMerger(store, model),
		store:      store,
		lastStatus: VoiceIdle,
	}
}

// Merger exposes the transcript merger for callback wiring.
func (m *VoiceManager) Merger() *VoiceMerger {
	return m.merger
}

// HandleText records the user's typed text as a transcript message, then
// sends it over the channel, connecting first when necessary. Text sent
// while connecting is parked until the connection is up.
func (m *VoiceManager) HandleText(text string) {
	m.store.Append(Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.channel.Status() {
	case VoiceConnected:
		if err := m.channel.SendText(text); err != nil {
			LogError("Failed to send voice text: %v", err)
		}
	case VoiceConnecting:
		m.pendingText = text
	default:
		m.pendingText = text
		if err := m.channel.Connect(m.merger.model); err != nil {
			LogError("Failed to connect voice channel: %v", err)
		}
	}
}

// HandleStatus reacts to a connection status change: flushes parked text
// on connect, clears streaming state when the connection drops. No
// automatic reconnect is attempted.
func (m *VoiceManager) HandleStatus(status VoiceStatus) {
	m.mu.Lock()
	pending := ""
	if status == VoiceConnected && m.pendingText != "" {
		pending = m.pendingText
		m.pendingText = ""
	}
	m.lastStatus = status
	m.mu.Unlock()

	if pending != "" {
		if err := m.channel.SendText(pending); err != nil {
			LogError("Failed to send pending voice text: %v", err)
		}
	}

	if status != VoiceConnected && m.ClearBlocks != nil {
		m.ClearBlocks()
	}
}

// Status returns the last status observed via HandleStatus.
func (m *VoiceManager) Status() VoiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStatus
}

// Disconnect tears the channel down and clears streaming state.
func (m *VoiceManager) Disconnect() {
	m.channel.Disconnect()
	if m.ClearBlocks != nil {
		m.ClearBlocks()
	}
}
