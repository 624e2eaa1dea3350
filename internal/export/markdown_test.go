package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/arloq/docchat/internal"
)

func testArchivedSession(id, name string) *internal.ArchivedSession {
	ts := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	return &internal.ArchivedSession{
		Info: internal.SessionInfo{
			SessionID:   id,
			SessionName: name,
			UpdatedAt:   ts,
		},
		Messages: []internal.Message{
			{Role: internal.RoleUser, Content: "What does clause 4 say?", Timestamp: ts},
			{Role: internal.RoleAssistant, Content: "Clause 4 limits liability.", Timestamp: ts.Add(time.Second)},
		},
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		session *internal.ArchivedSession
		want    []string
	}{
		{
			name:    "basic session",
			session: testArchivedSession("sess1", "Contract review"),
			want: []string{
				"# Contract review",
				"**Session:** sess1",
				"**Updated:** 2026-02-10T09:30:00Z",
				"**Messages:** 2",
				"## Messages",
				"**user:** (2026-02-10T09:30:00Z)",
				"What does clause 4 say?",
				"**assistant:**",
			},
		},
		{
			name: "unnamed session falls back to id",
			session: &internal.ArchivedSession{
				Info: internal.SessionInfo{SessionID: "sess2"},
			},
			want: []string{
				"# sess2",
				"**Messages:** 0",
			},
		},
		{
			name: "tool use and result",
			session: &internal.ArchivedSession{
				Info: internal.SessionInfo{SessionID: "sess3", SessionName: "Tools"},
				Messages: []internal.Message{
					{
						Role:          internal.RoleAssistant,
						IsToolUse:     true,
						ToolUseName:   "search",
						ToolUseStatus: internal.ToolStatusSuccess,
					},
					{
						Role:           internal.RoleAssistant,
						IsToolResult:   true,
						ToolResultType: internal.ResultTypeText,
						ToolName:       "search",
						Content:        "Found three matching sections.",
						Sources: []internal.SourceRef{
							{DocumentID: "doc-1"},
						},
					},
				},
			},
			want: []string{
				"*Tool `search` — success*",
				"*Result of `search`*",
				"Found three matching sections.",
				"- Source: doc-1",
			},
		},
		{
			name: "stage result",
			session: &internal.ArchivedSession{
				Info: internal.SessionInfo{SessionID: "sess4", SessionName: "Research"},
				Messages: []internal.Message{
					{
						Role:          internal.RoleAssistant,
						IsStageResult: true,
						StageName:     "planning",
						Content:       "Planned four search queries.",
					},
				},
			},
			want: []string{
				"*Stage planning*",
				"Planned four search queries.",
			},
		},
		{
			name: "attachments listed",
			session: &internal.ArchivedSession{
				Info: internal.SessionInfo{SessionID: "sess5", SessionName: "Uploads"},
				Messages: []internal.Message{
					{
						Role:    internal.RoleUser,
						Content: "Summarize this file",
						Attachments: []internal.Attachment{
							{Kind: internal.AttachmentDocument, Name: "lease.pdf"},
						},
					},
				},
			},
			want: []string{
				"- Attachment: lease.pdf",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := &MarkdownExporter{}
			var buf bytes.Buffer

			if err := exporter.Export(tt.session, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q\ngot:\n%s", want, output)
				}
			}
		})
	}
}

func TestMarkdownExporter_EscapesOutsideCodeBlocks(t *testing.T) {
	session := &internal.ArchivedSession{
		Info: internal.SessionInfo{SessionID: "sess6"},
		Messages: []internal.Message{
			{Role: internal.RoleAssistant, Content: "**bold** text\n```\n**kept**\n```"},
		},
	}

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `\*\*bold\*\*`) {
		t.Errorf("bold markers outside code blocks should be escaped:\n%s", output)
	}
	if !strings.Contains(output, "**kept**") {
		t.Errorf("code block content should be untouched:\n%s", output)
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	if got := (&MarkdownExporter{}).Extension(); got != "md" {
		t.Errorf("Extension() = %q, want md", got)
	}
}
