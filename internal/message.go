package internal

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolUseStatus tracks the lifecycle of a tool invocation.
type ToolUseStatus string

const (
	ToolStatusRunning ToolUseStatus = "running"
	ToolStatusSuccess ToolUseStatus = "success"
	ToolStatusError   ToolUseStatus = "error"
)

// ToolResultType classifies what a tool invocation produced.
type ToolResultType string

const (
	ResultTypeText     ToolResultType = "text"
	ResultTypeImage    ToolResultType = "image"
	ResultTypeArtifact ToolResultType = "artifact"
)

// AttachmentKind distinguishes attachment payloads.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment is a file carried by a message: an uploaded document or an
// image, either user-provided or tool-generated.
type Attachment struct {
	ID      string         `json:"id"`
	Kind    AttachmentKind `json:"kind"`
	Name    string         `json:"name"`
	Preview string         `json:"preview,omitempty"` // URL or data URI; empty when none
}

// Artifact references a downloadable file produced by a tool.
type Artifact struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	S3Key      string `json:"s3_key,omitempty"`
	S3Bucket   string `json:"s3_bucket,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// SourceRef is a document citation attached to a tool result.
type SourceRef struct {
	DocumentID string `json:"document_id"`
	SegmentID  string `json:"segment_id"`
}

// Message is a single turn-unit in a transcript. Exactly one of the four
// shapes applies: plain text, tool-use marker, tool result, or stage result.
// The boolean markers are mutually exclusive.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`

	IsToolUse     bool          `json:"is_tool_use,omitempty"`
	ToolUseName   string        `json:"tool_use_name,omitempty"`
	ToolUseStatus ToolUseStatus `json:"tool_use_status,omitempty"`

	IsToolResult   bool           `json:"is_tool_result,omitempty"`
	ToolResultType ToolResultType `json:"tool_result_type,omitempty"`
	Artifact       *Artifact      `json:"artifact,omitempty"`
	Sources        []SourceRef    `json:"sources,omitempty"`
	ToolName       string         `json:"tool_name,omitempty"`

	IsStageResult bool   `json:"is_stage_result,omitempty"`
	StageName     string `json:"stage_name,omitempty"`
}

// IsPlain reports whether the message is a conversational text turn, i.e.
// carries none of the tool/stage markers.
func (m *Message) IsPlain() bool {
	return !m.IsToolUse && !m.IsToolResult && !m.IsStageResult
}

// NewMessageID returns a fresh opaque message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// sessionIDLength is the minimum session identifier length the agent
// runtime accepts.
const sessionIDLength = 33

const sessionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewSessionID returns a fresh random session identifier of exactly
// sessionIDLength characters.
func NewSessionID() string {
	buf := make([]byte, sessionIDLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = sessionIDAlphabet[int(b)%len(sessionIDAlphabet)]
	}
	return string(buf)
}
