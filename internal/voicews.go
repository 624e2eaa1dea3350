package internal

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// voiceFrame is the wire shape of frames on the voice websocket, both
// directions. Outbound frames carry type "text"; inbound frames are
// "transcript" or "tool_use".
type voiceFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Role      string `json:"role,omitempty"`
	IsFinal   bool   `json:"is_final,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// VoiceEvents receives decoded frames from a websocket voice channel.
// The manager wires transcript and tool events to a VoiceMerger and
// status changes to its own lifecycle handling.
type VoiceEvents struct {
	OnTranscript func(text string, role Role, isFinal bool)
	OnToolUse    func(toolName, toolUseID string, status ToolUseStatus)
	OnStatus     func(status VoiceStatus)
}

// WebsocketVoiceChannel is a VoiceChannel over a websocket transport.
type WebsocketVoiceChannel struct {
	baseURL string
	token   string
	events  VoiceEvents
	dialer  *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	status VoiceStatus
}

// NewWebsocketVoiceChannel creates a channel that dials baseURL when
// connected. Events may have nil members; those frames are dropped.
func NewWebsocketVoiceChannel(baseURL, token string, events VoiceEvents) *WebsocketVoiceChannel {
	return &WebsocketVoiceChannel{
		baseURL: baseURL,
		token:   token,
		events:  events,
		dialer:  websocket.DefaultDialer,
		status:  VoiceIdle,
	}
}

// Connect dials the voice endpoint for the given provider model and
// starts the frame read loop.
func (c *WebsocketVoiceChannel) Connect(model VoiceModel) error {
	c.setStatus(VoiceConnecting)

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		c.setStatus(VoiceError)
		return &TransportError{Path: c.baseURL, Op: "dial", Err: err}
	}
	q := endpoint.Query()
	q.Set("model", string(model))
	endpoint.RawQuery = q.Encode()

	headers := make(map[string][]string)
	if c.token != "" {
		headers["Authorization"] = []string{"Bearer " + c.token}
	}

	conn, _, err := c.dialer.Dial(endpoint.String(), headers)
	if err != nil {
		c.setStatus(VoiceError)
		return &TransportError{Path: endpoint.String(), Op: "dial", Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setStatus(VoiceConnected)

	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection.
func (c *WebsocketVoiceChannel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.setStatus(VoiceIdle)
}

// Status returns the current connection state.
func (c *WebsocketVoiceChannel) Status() VoiceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SendText sends a text frame to the voice provider.
func (c *WebsocketVoiceChannel) SendText(text string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("voice channel is not connected")
	}
	frame := voiceFrame{Type: "text", Text: text}
	if err := conn.WriteJSON(frame); err != nil {
		return &TransportError{Path: c.baseURL, Op: "write", Err: err}
	}
	return nil
}

func (c *WebsocketVoiceChannel) setStatus(status VoiceStatus) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	c.mu.Unlock()
	if changed && c.events.OnStatus != nil {
		c.events.OnStatus(status)
	}
}

func (c *WebsocketVoiceChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			active := c.conn == conn
			if active {
				c.conn = nil
			}
			c.mu.Unlock()
			// A read error after Disconnect is the expected close.
			if active {
				LogWarn("Voice stream dropped: %v", err)
				c.setStatus(VoiceError)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *WebsocketVoiceChannel) dispatch(data []byte) {
	var frame voiceFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		LogDebug("Ignoring malformed voice frame: %v", err)
		return
	}

	switch frame.Type {
	case "transcript":
		if c.events.OnTranscript == nil {
			return
		}
		role := RoleAssistant
		if frame.Role == string(RoleUser) {
			role = RoleUser
		}
		c.events.OnTranscript(frame.Text, role, frame.IsFinal)
	case "tool_use":
		if c.events.OnToolUse == nil {
			return
		}
		c.events.OnToolUse(frame.ToolName, frame.ToolUseID, toolStatusFromWire(frame.Status))
	default:
		LogDebug("Ignoring voice frame of type %q", frame.Type)
	}
}

// The voice stream reports an in-flight tool as "started"; the rest of the
// client calls that state ToolStatusRunning.
func toolStatusFromWire(status string) ToolUseStatus {
	if status == "started" {
		return ToolStatusRunning
	}
	return ToolUseStatus(status)
}
