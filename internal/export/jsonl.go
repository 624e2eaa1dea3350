package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arloq/docchat/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.ArchivedSession, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range session.Messages {
		obj := map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}

		if !msg.Timestamp.IsZero() {
			obj["timestamp"] = msg.Timestamp
		}
		if msg.IsToolUse {
			obj["tool_use"] = msg.ToolUseName
			obj["tool_status"] = msg.ToolUseStatus
		}
		if msg.IsToolResult {
			obj["tool_result_type"] = msg.ToolResultType
			if msg.ToolName != "" {
				obj["tool_name"] = msg.ToolName
			}
			if len(msg.Sources) > 0 {
				obj["sources"] = msg.Sources
			}
			if msg.Artifact != nil {
				obj["artifact"] = msg.Artifact.Filename
			}
		}
		if msg.IsStageResult {
			obj["stage"] = msg.StageName
		}
		if len(msg.Attachments) > 0 {
			names := make([]string, 0, len(msg.Attachments))
			for _, a := range msg.Attachments {
				names = append(names, a.Name)
			}
			obj["attachments"] = names
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
