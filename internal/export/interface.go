package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/arloq/docchat/internal"
)

// Exporter writes one archived session, session info plus transcript, in a
// single output format. The structured formats (json, yaml) emit the
// archive snapshot shape; jsonl and markdown flatten it for line-oriented
// tooling and for reading.
type Exporter interface {
	Export(session *internal.ArchivedSession, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}

// structuredView copies the session for structured export, blanking inline
// image previews: a generated image is carried as a base64 data URI that
// can run to megabytes and is useless outside the live view. Remote
// preview URLs survive the export.
func structuredView(session *internal.ArchivedSession) *internal.ArchivedSession {
	out := &internal.ArchivedSession{
		Info:     session.Info,
		Messages: make([]internal.Message, len(session.Messages)),
	}
	copy(out.Messages, session.Messages)
	for i := range out.Messages {
		if out.Messages[i].Attachments == nil {
			continue
		}
		atts := make([]internal.Attachment, len(out.Messages[i].Attachments))
		copy(atts, out.Messages[i].Attachments)
		for j := range atts {
			if strings.HasPrefix(atts[j].Preview, "data:") {
				atts[j].Preview = ""
			}
		}
		out.Messages[i].Attachments = atts
	}
	return out
}
