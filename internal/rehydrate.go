package internal

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rehydrator reconstructs, from persisted flat history records, the same
// Message shape the stream reducer produces live, so a reopened session
// renders exactly as it streamed.
type Rehydrator struct {
	now func() time.Time
}

// NewRehydrator creates a Rehydrator.
func NewRehydrator() *Rehydrator {
	return &Rehydrator{now: time.Now}
}

// voiceToolMarkerLimit bounds the short single-line tool_result payloads
// that voice sessions persist in place of a proper tool-use event.
const voiceToolMarkerLimit = 100

var (
	timestampPrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	markdownHeadingPattern = regexp.MustCompile(`(?m)^#{1,3}\s`)
)

// Rehydrate converts the stored records into transcript messages and runs
// the adjacency-merge pass that collapses multi-part streamed text back
// into single bubbles.
func (r *Rehydrator) Rehydrate(records []HistoryMessage) []Message {
	msgs := make([]Message, 0, len(records))
	for idx, rec := range records {
		msgs = append(msgs, r.rehydrateRecord(idx, rec))
	}
	return mergeAdjacent(msgs)
}

func (r *Rehydrator) rehydrateRecord(idx int, rec HistoryMessage) Message {
	var toolResult *ContentItem
	for i := range rec.Content {
		if rec.Content[i].Type == "tool_result" {
			toolResult = &rec.Content[i]
			break
		}
	}

	// Voice sessions persist the tool name as a tiny tool_result; recognize
	// that legacy encoding and surface it as a completed tool-use marker.
	if toolResult != nil && isVoiceToolMarker(toolResult.Content) {
		name := toolResult.Content[0].Text
		return Message{
			ID:            fmt.Sprintf("history-%d", idx),
			Role:          RoleAssistant,
			Content:       name,
			Timestamp:     r.now(),
			IsToolUse:     true,
			ToolUseName:   name,
			ToolUseStatus: ToolStatusSuccess,
		}
	}

	if toolResult != nil && toolResult.Content != nil {
		return r.rehydrateToolResult(idx, toolResult.Content)
	}

	return r.rehydratePlain(idx, rec)
}

func isVoiceToolMarker(nested []ContentItem) bool {
	if len(nested) != 1 {
		return false
	}
	item := nested[0]
	return item.Type == "text" && item.Text != "" &&
		!strings.Contains(item.Text, "\n") && len(item.Text) < voiceToolMarkerLimit
}

func (r *Rehydrator) rehydrateToolResult(idx int, nested []ContentItem) Message {
	res := AnalyzeToolResult(nested, fmt.Sprintf("history-%d-tool-img", idx))

	msg := Message{
		ID:             fmt.Sprintf("history-%d", idx),
		Role:           RoleAssistant,
		Content:        res.Display,
		Timestamp:      r.now(),
		IsToolResult:   true,
		ToolResultType: res.Type,
		Artifact:       res.Artifact,
		Sources:        res.Sources,
		ToolName:       inferToolName(res),
	}
	if len(res.Images) > 0 {
		msg.Attachments = res.Images
	}
	return msg
}

// inferToolName guesses which tool produced a rehydrated result from its
// content signature. Persisted records do not retain the tool name, so
// this is a best-effort display label only; it must never drive behavior.
func inferToolName(res ToolResult) string {
	text := res.Text
	switch {
	case res.Sources != nil:
		return "search___summarize"
	case strings.HasPrefix(text, "Found") && strings.Contains(text, "search results"):
		return "search"
	case res.Type == ResultTypeImage:
		return "generate_image"
	case timestampPrefixPattern.MatchString(strings.TrimSpace(text)):
		return "current_time"
	case strings.HasPrefix(strings.TrimSpace(text), "Result:"):
		return "calculator"
	case strings.HasPrefix(text, "Agent handoff completed"):
		return "handoff_to_user"
	case res.Type == ResultTypeText && res.Artifact == nil && len(text) > 500 &&
		!strings.HasPrefix(text, "{") && len(markdownHeadingPattern.FindAllString(text, -1)) >= 2:
		return "research_agent"
	case res.Type == ResultTypeText && res.Artifact == nil && len(text) > 500 &&
		!strings.HasPrefix(text, "{"):
		return "fetch_content"
	default:
		return ""
	}
}

func (r *Rehydrator) rehydratePlain(idx int, rec HistoryMessage) Message {
	var textParts []string
	for _, item := range rec.Content {
		if item.Type == "text" && item.Text != "" {
			textParts = append(textParts, item.Text)
		}
	}

	attachments := imageAttachments(rec.Content, fmt.Sprintf("history-%d-img", idx), "image")
	attachments = append(attachments, documentAttachments(rec.Content, idx)...)

	role := RoleUser
	if rec.Role == string(RoleAssistant) {
		role = RoleAssistant
	}

	msg := Message{
		ID:        fmt.Sprintf("history-%d", idx),
		Role:      role,
		Content:   strings.Join(textParts, "\n"),
		Timestamp: r.now(),
	}
	if len(attachments) > 0 {
		msg.Attachments = attachments
	}
	return msg
}

var fileExtensionPattern = regexp.MustCompile(`\.[a-zA-Z0-9]+$`)

// documentAttachments maps stored document items to attachment references.
// Names persisted without a file extension get one appended from the
// declared format, when present.
func documentAttachments(items []ContentItem, idx int) []Attachment {
	var out []Attachment
	for _, item := range items {
		if item.Type != "document" || item.Name == "" {
			continue
		}
		name := item.Name
		if !fileExtensionPattern.MatchString(name) && item.Format != "" {
			name = name + "." + item.Format
		}
		out = append(out, Attachment{
			ID:   fmt.Sprintf("history-%d-doc-%d", idx, len(out)),
			Kind: AttachmentDocument,
			Name: name,
		})
	}
	return out
}

// mergeAdjacent collapses consecutive same-role plain messages without
// attachments into one, concatenating their content. Streamed text that
// was persisted as separate chunks comes back as a single bubble.
func mergeAdjacent(msgs []Message) []Message {
	merged := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if prev.Role == msg.Role && prev.IsPlain() && msg.IsPlain() &&
				prev.Attachments == nil && msg.Attachments == nil {
				prev.Content += msg.Content
				continue
			}
		}
		merged = append(merged, msg)
	}
	return merged
}
