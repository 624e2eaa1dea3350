package export

import (
	"encoding/json"
	"io"

	"github.com/arloq/docchat/internal"
)

// JSONExporter emits the archive snapshot as one pretty-printed JSON
// document: {"info": ..., "messages": [...]}. Inline image bytes are
// dropped from attachments before encoding.
type JSONExporter struct{}

// Export exports a session to JSON format
func (e *JSONExporter) Export(session *internal.ArchivedSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(structuredView(session))
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
