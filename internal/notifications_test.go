package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestNotificationDispatch(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		handled bool
	}{
		{
			name:    "session event",
			frame:   `{"type":"sessions","event":"created","session_id":"s-1","session_name":"New chat"}`,
			handled: true,
		},
		{
			name:    "other frame type ignored",
			frame:   `{"type":"heartbeat"}`,
			handled: false,
		},
		{
			name:    "malformed frame ignored",
			frame:   `{not json`,
			handled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *SessionEvent
			l := NewNotificationListener("ws://unused", "", func(ev SessionEvent) {
				got = &ev
			})

			l.dispatch([]byte(tt.frame))

			if tt.handled {
				if got == nil {
					t.Fatal("handler not invoked")
				}
				if got.Event != "created" || got.SessionID != "s-1" {
					t.Errorf("unexpected event: %+v", got)
				}
			} else if got != nil {
				t.Errorf("handler should not have been invoked, got %+v", got)
			}
		})
	}
}

func TestNotificationListen(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"sessions","event":"renamed","session_id":"s-9"}`))
	}))
	defer srv.Close()

	var events []SessionEvent
	l := NewNotificationListener("ws"+strings.TrimPrefix(srv.URL, "http"), "tok-1", func(ev SessionEvent) {
		events = append(events, ev)
	})

	// listen returns once the server closes the connection
	err := l.listen(context.Background())
	if err == nil {
		t.Fatal("expected a read error after server close")
	}

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(events) != 1 || events[0].SessionID != "s-9" {
		t.Errorf("events = %+v", events)
	}
}
