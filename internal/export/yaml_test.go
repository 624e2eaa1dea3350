package export

import (
	"bytes"
	"testing"

	"github.com/arloq/docchat/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	session := testArchivedSession("sess1", "Contract review")

	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded internal.ArchivedSession
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Info.SessionID != "sess1" {
		t.Errorf("SessionID = %q", decoded.Info.SessionID)
	}
	if len(decoded.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(decoded.Messages))
	}
	if decoded.Messages[0].Role != internal.RoleUser {
		t.Errorf("Role = %q", decoded.Messages[0].Role)
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	if got := (&YAMLExporter{}).Extension(); got != "yaml" {
		t.Errorf("Extension() = %q, want yaml", got)
	}
}
