package internal_test

import (
	"testing"

	"github.com/arloq/docchat/internal"
	"github.com/arloq/docchat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceMergerGeminiIgnoresFinals(t *testing.T) {
	store := internal.NewSessionStore()
	vm := internal.NewVoiceMerger(store, internal.VoiceGemini)

	vm.OnTranscript("Hel", internal.RoleAssistant, false)
	vm.OnTranscript("lo", internal.RoleAssistant, false)
	vm.OnTranscript("Hello.", internal.RoleAssistant, true)

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Content, "final fragments are informational for gemini")
}

func TestVoiceMergerNovaSonicFinalFallback(t *testing.T) {
	store := internal.NewSessionStore()
	vm := internal.NewVoiceMerger(store, internal.VoiceNovaSonic)

	// Deltas arrived normally: the final must not duplicate the message.
	vm.OnTranscript("Hello", internal.RoleAssistant, false)
	vm.OnTranscript("Hello", internal.RoleAssistant, true)
	require.Len(t, store.Messages(), 1)

	// Interrupted delta stream for the user: the final opens the message.
	vm.OnTranscript("What time is it?", internal.RoleUser, true)
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, internal.RoleUser, msgs[1].Role)
	assert.Equal(t, "What time is it?", msgs[1].Content)
}

func TestVoiceMergerOpenAIFinalOnly(t *testing.T) {
	store := internal.NewSessionStore()
	vm := internal.NewVoiceMerger(store, internal.VoiceOpenAI)

	vm.OnTranscript("partial", internal.RoleAssistant, false)
	require.Zero(t, store.Len(), "openai non-final fragments are dropped")

	vm.OnTranscript("Complete sentence.", internal.RoleAssistant, true)
	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Complete sentence.", msgs[0].Content)
}

func TestVoiceMergerDeltaDoesNotExtendToolMarker(t *testing.T) {
	store := internal.NewSessionStore()
	vm := internal.NewVoiceMerger(store, internal.VoiceGemini)

	vm.OnToolUse("search", "tu-1", internal.ToolStatusRunning)
	vm.OnTranscript("after the tool", internal.RoleAssistant, false)

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsToolUse)
	assert.Equal(t, "after the tool", msgs[1].Content)
}

func TestVoiceMergerToolLifecycle(t *testing.T) {
	store := internal.NewSessionStore()
	vm := internal.NewVoiceMerger(store, internal.VoiceNovaSonic)

	vm.OnToolUse("current_time", "tu-9", internal.ToolStatusRunning)
	vm.OnToolUse("current_time", "tu-9", internal.ToolStatusSuccess)

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, internal.ToolStatusSuccess, msgs[0].ToolUseStatus)
}

func TestVoiceManagerParksTextWhileConnecting(t *testing.T) {
	store := internal.NewSessionStore()
	channel := &testutil.FakeVoiceChannel{ConnectStatus: internal.VoiceConnecting}
	manager := internal.NewVoiceManager(store, channel, internal.VoiceNovaSonic)

	manager.HandleText("hello voice")

	assert.Equal(t, 1, store.Len(), "typed text lands in the transcript immediately")
	assert.Empty(t, channel.Sent, "nothing is sent while connecting")
	require.Len(t, channel.Connects, 1)
	assert.Equal(t, internal.VoiceNovaSonic, channel.Connects[0])

	channel.SetStatus(internal.VoiceConnected)
	manager.HandleStatus(internal.VoiceConnected)

	require.Len(t, channel.Sent, 1)
	assert.Equal(t, "hello voice", channel.Sent[0])
}

func TestVoiceManagerSendsWhenConnected(t *testing.T) {
	store := internal.NewSessionStore()
	channel := &testutil.FakeVoiceChannel{}
	channel.SetStatus(internal.VoiceConnected)
	manager := internal.NewVoiceManager(store, channel, internal.VoiceGemini)

	manager.HandleText("direct")
	require.Len(t, channel.Sent, 1)
	assert.Equal(t, "direct", channel.Sent[0])
}

func TestVoiceManagerClearsBlocksOnDrop(t *testing.T) {
	store := internal.NewSessionStore()
	channel := &testutil.FakeVoiceChannel{}
	manager := internal.NewVoiceManager(store, channel, internal.VoiceOpenAI)

	cleared := 0
	manager.ClearBlocks = func() { cleared++ }

	manager.HandleStatus(internal.VoiceConnected)
	assert.Zero(t, cleared)

	manager.HandleStatus(internal.VoiceError)
	assert.Equal(t, 1, cleared, "leaving connected state discards streaming blocks")
	assert.Equal(t, internal.VoiceError, manager.Status())
}
