package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/arloq/docchat/internal"
)

// AnswerScript is a plain streamed answer: one text delta per part and a
// completion event carrying the joined text.
func AnswerScript(parts ...string) []internal.StreamEvent {
	events := make([]internal.StreamEvent, 0, len(parts)+1)
	full := ""
	for _, p := range parts {
		events = append(events, internal.StreamEvent{Type: internal.EventText, Text: p})
		full += p
	}
	events = append(events, internal.StreamEvent{Type: internal.EventComplete, Text: full})
	return events
}

// SearchScript streams a search tool invocation whose result carries an
// answer and citations for the given document ids.
func SearchScript(answer string, docIDs ...string) []internal.StreamEvent {
	sources := make([]map[string]string, 0, len(docIDs))
	for i, id := range docIDs {
		sources = append(sources, map[string]string{
			"document_id": id,
			"segment_id":  fmt.Sprintf("seg-%d", i),
		})
	}
	payload := JSONString(map[string]interface{}{
		"answer":  answer,
		"sources": sources,
	})
	return []internal.StreamEvent{
		{Type: internal.EventToolUse, Name: "search"},
		{Type: internal.EventToolResult, Content: []internal.ContentItem{{Type: "text", Text: payload}}},
		{Type: internal.EventComplete, Text: answer},
	}
}

// JSONString marshals v, panicking on failure. Fixture-only.
func JSONString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// SessionPageFixture builds a one-page listing of n sessions.
func SessionPageFixture(n int, nextCursor string) internal.SessionPage {
	page := internal.SessionPage{NextCursor: nextCursor}
	for i := 0; i < n; i++ {
		page.Sessions = append(page.Sessions, internal.SessionInfo{
			SessionID:   fmt.Sprintf("session-%03d", i),
			SessionName: fmt.Sprintf("Session %d", i),
		})
	}
	return page
}

// HistoryFixture builds a persisted conversation of alternating turns.
func HistoryFixture(sessionID string, turns int) *internal.HistoryResponse {
	resp := &internal.HistoryResponse{SessionID: sessionID}
	for i := 0; i < turns; i++ {
		resp.Messages = append(resp.Messages,
			internal.HistoryMessage{
				Role:    "user",
				Content: []internal.ContentItem{{Type: "text", Text: fmt.Sprintf("question %d", i+1)}},
			},
			internal.HistoryMessage{
				Role:    "assistant",
				Content: []internal.ContentItem{{Type: "text", Text: fmt.Sprintf("answer %d", i+1)}},
			},
		)
	}
	return resp
}
