package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arloq/docchat/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.ArchivedSession, w io.Writer) error {
	title := session.Info.SessionName
	if title == "" {
		title = session.Info.SessionID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.Info.SessionID)
	if session.Info.AgentID != "" {
		_, _ = fmt.Fprintf(w, "**Agent:** %s  \n", session.Info.AgentID)
	}
	if !session.Info.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", session.Info.UpdatedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range session.Messages {
		e.writeMessage(w, msg)

		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func (e *MarkdownExporter) writeMessage(w io.Writer, msg internal.Message) {
	timestamp := ""
	if !msg.Timestamp.IsZero() {
		timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.Format(time.RFC3339))
	}

	switch {
	case msg.IsToolUse:
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n*Tool `%s` — %s*\n\n",
			msg.Role, timestamp, msg.ToolUseName, msg.ToolUseStatus)

	case msg.IsToolResult:
		label := "Tool result"
		if msg.ToolName != "" {
			label = fmt.Sprintf("Result of `%s`", msg.ToolName)
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n*%s*\n\n", msg.Role, timestamp, label)
		if msg.Content != "" {
			_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(msg.Content))
		}
		if msg.Artifact != nil {
			_, _ = fmt.Fprintf(w, "Artifact: [%s](%s)\n\n", msg.Artifact.Filename, msg.Artifact.URL)
		}
		for _, src := range msg.Sources {
			_, _ = fmt.Fprintf(w, "- Source: %s\n", src.DocumentID)
		}
		if len(msg.Sources) > 0 {
			_, _ = fmt.Fprintf(w, "\n")
		}

	case msg.IsStageResult:
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n*Stage %s*\n\n%s\n\n",
			msg.Role, timestamp, msg.StageName, escapeMarkdown(msg.Content))

	default:
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, escapeMarkdown(msg.Content))
		for _, att := range msg.Attachments {
			_, _ = fmt.Fprintf(w, "- Attachment: %s\n", att.Name)
		}
		if len(msg.Attachments) > 0 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
