package internal

import (
	"encoding/json"
	"fmt"
)

// BlockSource carries base64-encoded file bytes on the wire.
type BlockSource struct {
	Base64 string `json:"base64,omitempty"`
	Bytes  string `json:"bytes,omitempty"`
}

// ImageBlock is an outbound image content block.
type ImageBlock struct {
	Format string      `json:"format"`
	Source BlockSource `json:"source"`
}

// DocumentBlock is an outbound document content block.
type DocumentBlock struct {
	Format string      `json:"format"`
	Name   string      `json:"name"`
	Source BlockSource `json:"source"`
}

// ContentBlock is one element of an outbound conversational turn. Exactly
// one field is set.
type ContentBlock struct {
	Text     string         `json:"text,omitempty"`
	Image    *ImageBlock    `json:"image,omitempty"`
	Document *DocumentBlock `json:"document,omitempty"`
}

// ImagePayload is the nested image shape some tool results use instead of
// the flat format/source fields.
type ImagePayload struct {
	Format string      `json:"format,omitempty"`
	Source BlockSource `json:"source"`
}

// ContentItem is one element of a stored or streamed content list. The same
// shape appears in persisted history records and in tool_result stream
// events; tool_result items nest their own content list.
type ContentItem struct {
	Type    string        `json:"type,omitempty"`
	Text    string        `json:"text,omitempty"`
	Format  string        `json:"format,omitempty"`
	Source  string        `json:"source,omitempty"` // base64 image bytes
	S3URL   string        `json:"s3_url,omitempty"`
	Name    string        `json:"name,omitempty"`
	Image   *ImagePayload `json:"image,omitempty"`
	Content []ContentItem `json:"content,omitempty"`
}

// Stream event types delivered by the agent runtime.
const (
	EventText          = "text"
	EventToolUse       = "tool_use"
	EventToolResult    = "tool_result"
	EventStageStart    = "stage_start"
	EventStageComplete = "stage_complete"
	EventComplete      = "complete"
)

// StreamEvent is one inbound event from an in-flight agent invocation. The
// wire-level content field is polymorphic: a string for text events, a
// content-item list for tool results.
type StreamEvent struct {
	Type    string
	Text    string        // text events
	Name    string        // tool_use events
	Content []ContentItem // tool_result events
	Stage   string        // stage_start / stage_complete events
	Result  string        // stage_complete events
}

// streamEventWire mirrors the JSON layout of a stream event.
type streamEventWire struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
	Name    string          `json:"name,omitempty"`
	Stage   string          `json:"stage,omitempty"`
	Result  string          `json:"result,omitempty"`
}

// UnmarshalJSON decodes the polymorphic content field by event type.
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var w streamEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Type = w.Type
	e.Name = w.Name
	e.Stage = w.Stage
	e.Result = w.Result
	e.Text = ""
	e.Content = nil
	if len(w.Content) == 0 {
		return nil
	}
	switch w.Type {
	case EventText, EventComplete:
		if err := json.Unmarshal(w.Content, &e.Text); err != nil {
			return fmt.Errorf("decode %s content: %w", w.Type, err)
		}
	case EventToolResult:
		if err := json.Unmarshal(w.Content, &e.Content); err != nil {
			return fmt.Errorf("decode tool_result content: %w", err)
		}
	}
	return nil
}

// MarshalJSON re-encodes the event in its wire layout.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	w := streamEventWire{Type: e.Type, Name: e.Name, Stage: e.Stage, Result: e.Result}
	switch e.Type {
	case EventText, EventComplete:
		if e.Text != "" {
			raw, err := json.Marshal(e.Text)
			if err != nil {
				return nil, err
			}
			w.Content = raw
		}
	case EventToolResult:
		if e.Content != nil {
			raw, err := json.Marshal(e.Content)
			if err != nil {
				return nil, err
			}
			w.Content = raw
		}
	}
	return json.Marshal(w)
}

// HistoryMessage is one persisted transcript record.
type HistoryMessage struct {
	Role    string        `json:"role"`
	Content []ContentItem `json:"content"`
}

// HistoryResponse is the payload of a session-history fetch.
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}
