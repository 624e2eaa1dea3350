package internal

import (
	"strings"
	"time"
)

// VoiceModel identifies a voice-chat provider backend.
type VoiceModel string

const (
	VoiceNovaSonic VoiceModel = "nova_sonic"
	VoiceGemini    VoiceModel = "gemini"
	VoiceOpenAI    VoiceModel = "openai"
)

// AgentModeKind enumerates the chat modes a session can run in.
type AgentModeKind int

const (
	AgentDefault AgentModeKind = iota
	AgentNamed
	AgentResearch
	AgentVoice
)

// AgentMode is the decoded form of the wire-level agent_id field, which
// overloads one string to carry a literal agent identifier, the research
// sentinel, or a voice_<model> tag. Decoding happens once at the store
// boundary; consumers never re-parse the raw string.
type AgentMode struct {
	Kind       AgentModeKind
	AgentID    string     // set when Kind == AgentNamed
	VoiceModel VoiceModel // set when Kind == AgentVoice
}

// ParseAgentMode decodes a wire agent_id value.
func ParseAgentMode(agentID string) AgentMode {
	switch {
	case agentID == "" || agentID == "default":
		return AgentMode{Kind: AgentDefault}
	case agentID == "research":
		return AgentMode{Kind: AgentResearch}
	case strings.HasPrefix(agentID, "voice"):
		model := VoiceModel(strings.TrimPrefix(agentID, "voice_"))
		switch model {
		case VoiceNovaSonic, VoiceGemini, VoiceOpenAI:
		default:
			model = VoiceNovaSonic
		}
		return AgentMode{Kind: AgentVoice, VoiceModel: model}
	default:
		return AgentMode{Kind: AgentNamed, AgentID: agentID}
	}
}

// Wire encodes the mode back to the overloaded agent_id string.
func (m AgentMode) Wire() string {
	switch m.Kind {
	case AgentNamed:
		return m.AgentID
	case AgentResearch:
		return "research"
	case AgentVoice:
		return "voice_" + string(m.VoiceModel)
	default:
		return "default"
	}
}

// Agent describes a named agent available to the project.
type Agent struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
}

// SessionInfo is the server-side metadata record for one chat session.
type SessionInfo struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	AgentID     string    `json:"agent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Mode returns the decoded agent mode for this session.
func (s SessionInfo) Mode() AgentMode {
	return ParseAgentMode(s.AgentID)
}

// SessionPage is one page of the session listing.
type SessionPage struct {
	Sessions   []SessionInfo `json:"sessions"`
	NextCursor string        `json:"next_cursor"`
}
