package internal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// SessionEvent is a pushed notification about session lifecycle changes.
type SessionEvent struct {
	Event       string `json:"event"`
	SessionID   string `json:"session_id"`
	SessionName string `json:"session_name,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// notificationEnvelope is the wire frame around pushed events. Only
// frames tagged "sessions" carry a SessionEvent.
type notificationEnvelope struct {
	Type string `json:"type"`
	SessionEvent
}

// NotificationListener maintains a websocket subscription to server-side
// session notifications and routes them to a handler.
type NotificationListener struct {
	url     string
	token   string
	handler func(SessionEvent)

	dialer    *websocket.Dialer
	reconnect time.Duration
}

// NewNotificationListener creates a listener for the given websocket URL.
// The handler is invoked from the listener's goroutine.
func NewNotificationListener(url, token string, handler func(SessionEvent)) *NotificationListener {
	return &NotificationListener{
		url:       url,
		token:     token,
		handler:   handler,
		dialer:    websocket.DefaultDialer,
		reconnect: 5 * time.Second,
	}
}

// Run connects and dispatches events until the context is canceled,
// reconnecting after transient failures.
func (l *NotificationListener) Run(ctx context.Context) {
	for {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			LogWarn("Notification stream dropped: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnect):
		}
	}
}

func (l *NotificationListener) listen(ctx context.Context) error {
	headers := make(map[string][]string)
	if l.token != "" {
		headers["Authorization"] = []string{"Bearer " + l.token}
	}
	conn, _, err := l.dialer.DialContext(ctx, l.url, headers)
	if err != nil {
		return &TransportError{Path: l.url, Op: "dial", Err: err}
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	LogDebug("Notification stream connected: %s", l.url)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return &TransportError{Path: l.url, Op: "read", Err: err}
		}
		l.dispatch(data)
	}
}

func (l *NotificationListener) dispatch(data []byte) {
	var envelope notificationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		LogDebug("Ignoring malformed notification: %v", err)
		return
	}
	if envelope.Type != "sessions" {
		return
	}
	l.handler(envelope.SessionEvent)
}
