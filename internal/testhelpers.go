package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// CreateTestMessage creates a plain message with sample data
func CreateTestMessage(role Role, content string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// CreateTestTranscript creates an alternating user/assistant transcript
func CreateTestTranscript(turns int) []Message {
	msgs := make([]Message, 0, turns*2)
	for i := 0; i < turns; i++ {
		msgs = append(msgs,
			CreateTestMessage(RoleUser, fmt.Sprintf("question %d", i+1)),
			CreateTestMessage(RoleAssistant, fmt.Sprintf("answer %d", i+1)),
		)
	}
	return msgs
}

// CreateTestSessionInfo creates a session listing entry
func CreateTestSessionInfo(id, name, agentID string) SessionInfo {
	now := time.Now()
	return SessionInfo{
		SessionID:   id,
		SessionName: name,
		AgentID:     agentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TextEvent creates a streaming text delta event
func TextEvent(text string) StreamEvent {
	return StreamEvent{Type: EventText, Text: text}
}

// ToolUseEvent creates a streaming tool invocation event
func ToolUseEvent(name string) StreamEvent {
	return StreamEvent{Type: EventToolUse, Name: name}
}

// ToolResultTextEvent creates a tool result event carrying plain text
func ToolResultTextEvent(text string) StreamEvent {
	return StreamEvent{
		Type:    EventToolResult,
		Content: []ContentItem{{Type: "text", Text: text}},
	}
}

// ToolResultJSONEvent creates a tool result event whose single text item
// is the JSON encoding of v
func ToolResultJSONEvent(v interface{}) StreamEvent {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return ToolResultTextEvent(string(data))
}

// HistoryText creates a persisted record with a single text item
func HistoryText(role Role, text string) HistoryMessage {
	return HistoryMessage{
		Role:    string(role),
		Content: []ContentItem{{Type: "text", Text: text}},
	}
}
