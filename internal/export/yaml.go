package export

import (
	"io"

	"github.com/arloq/docchat/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter emits the archive snapshot as a YAML document, the same
// shape as the JSON exporter. Inline image bytes are dropped from
// attachments before encoding.
type YAMLExporter struct{}

// Export exports a session to YAML format
func (e *YAMLExporter) Export(session *internal.ArchivedSession, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(structuredView(session))
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
