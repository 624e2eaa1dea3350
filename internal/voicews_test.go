package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebsocketVoiceChannelDispatch(t *testing.T) {
	var transcripts []voiceFrame
	var tools []voiceFrame

	c := NewWebsocketVoiceChannel("ws://unused", "", VoiceEvents{
		OnTranscript: func(text string, role Role, isFinal bool) {
			transcripts = append(transcripts, voiceFrame{Text: text, Role: string(role), IsFinal: isFinal})
		},
		OnToolUse: func(toolName, toolUseID string, status ToolUseStatus) {
			tools = append(tools, voiceFrame{ToolName: toolName, ToolUseID: toolUseID, Status: string(status)})
		},
	})

	c.dispatch([]byte(`{"type":"transcript","text":"hello","role":"user","is_final":true}`))
	c.dispatch([]byte(`{"type":"transcript","text":"partial","role":"assistant"}`))
	c.dispatch([]byte(`{"type":"tool_use","tool_name":"search","tool_use_id":"tu-1","status":"started"}`))
	c.dispatch([]byte(`{"type":"audio"}`))
	c.dispatch([]byte(`not json`))

	if len(transcripts) != 2 {
		t.Fatalf("got %d transcripts, want 2", len(transcripts))
	}
	if transcripts[0].Role != "user" || !transcripts[0].IsFinal {
		t.Errorf("first transcript: %+v", transcripts[0])
	}
	if transcripts[1].Role != "assistant" || transcripts[1].IsFinal {
		t.Errorf("second transcript: %+v", transcripts[1])
	}
	if len(tools) != 1 || tools[0].ToolName != "search" || tools[0].Status != "running" {
		t.Errorf("tools = %+v", tools)
	}
}

// Tool lifecycle frames arrive with the wire statuses started/success/error;
// the stream must land in the transcript as a running marker that later
// resolves in place.
func TestWebsocketVoiceChannelToolLifecycle(t *testing.T) {
	store := NewSessionStore()
	vm := NewVoiceMerger(store, VoiceNovaSonic)

	c := NewWebsocketVoiceChannel("ws://unused", "", VoiceEvents{
		OnToolUse: vm.OnToolUse,
	})

	c.dispatch([]byte(`{"type":"tool_use","tool_name":"search","tool_use_id":"tu-1","status":"started"}`))

	msgs := store.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages after started frame, want 1", len(msgs))
	}
	if !msgs[0].IsToolUse || msgs[0].ToolUseName != "search" || msgs[0].ToolUseStatus != ToolStatusRunning {
		t.Errorf("running marker = %+v", msgs[0])
	}

	c.dispatch([]byte(`{"type":"tool_use","tool_name":"search","tool_use_id":"tu-1","status":"success"}`))

	msgs = store.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages after success frame, want 1", len(msgs))
	}
	if msgs[0].ToolUseStatus != ToolStatusSuccess {
		t.Errorf("status after success frame = %q, want %q", msgs[0].ToolUseStatus, ToolStatusSuccess)
	}
}

func TestWebsocketVoiceChannelConnect(t *testing.T) {
	upgrader := websocket.Upgrader{}

	var mu sync.Mutex
	var gotModel, gotAuth string
	received := make(chan voiceFrame, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotModel = r.URL.Query().Get("model")
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame voiceFrame
		if err := json.Unmarshal(data, &frame); err == nil {
			received <- frame
		}

		_ = conn.WriteJSON(voiceFrame{Type: "transcript", Text: "Hi there.", Role: "assistant", IsFinal: true})
	}))
	defer srv.Close()

	transcripts := make(chan string, 1)
	var statuses []VoiceStatus
	var statusMu sync.Mutex

	c := NewWebsocketVoiceChannel("ws"+strings.TrimPrefix(srv.URL, "http"), "tok-1", VoiceEvents{
		OnTranscript: func(text string, role Role, isFinal bool) {
			transcripts <- text
		},
		OnStatus: func(status VoiceStatus) {
			statusMu.Lock()
			statuses = append(statuses, status)
			statusMu.Unlock()
		},
	})

	if err := c.Connect(VoiceNovaSonic); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.Status() != VoiceConnected {
		t.Errorf("Status() = %v, want connected", c.Status())
	}

	if err := c.SendText("hello voice"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	select {
	case frame := <-received:
		if frame.Type != "text" || frame.Text != "hello voice" {
			t.Errorf("server received %+v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the text frame")
	}

	select {
	case text := <-transcripts:
		if text != "Hi there." {
			t.Errorf("transcript = %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transcript never delivered")
	}

	mu.Lock()
	if gotModel != "nova_sonic" {
		t.Errorf("model query param = %q", gotModel)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	mu.Unlock()

	c.Disconnect()
	if c.Status() != VoiceIdle {
		t.Errorf("Status() after Disconnect = %v, want idle", c.Status())
	}

	statusMu.Lock()
	defer statusMu.Unlock()
	if len(statuses) < 3 || statuses[0] != VoiceConnecting || statuses[1] != VoiceConnected {
		t.Errorf("status sequence = %v", statuses)
	}
}

func TestWebsocketVoiceChannelSendWithoutConnect(t *testing.T) {
	c := NewWebsocketVoiceChannel("ws://unused", "", VoiceEvents{})
	if err := c.SendText("hello"); err == nil {
		t.Error("expected an error when not connected")
	}
}
