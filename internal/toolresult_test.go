package internal

import (
	"encoding/json"
	"testing"
)

func TestAnalyzeToolResultPlainText(t *testing.T) {
	res := AnalyzeToolResult([]ContentItem{
		{Type: "text", Text: "line one"},
		{Type: "text", Text: "line two"},
	}, "p")

	if res.Type != ResultTypeText {
		t.Errorf("Expected text type, got %s", res.Type)
	}
	if res.Text != "line one\nline two" {
		t.Errorf("Expected newline-joined text, got %q", res.Text)
	}
	if res.Display != res.Text {
		t.Errorf("Plain text should display as-is, got %q", res.Display)
	}
	if res.Artifact != nil || res.Sources != nil {
		t.Error("Plain text should sniff neither shape")
	}
}

func TestAnalyzeToolResultUntypedTextCounts(t *testing.T) {
	res := AnalyzeToolResult([]ContentItem{{Text: "untyped"}}, "p")
	if res.Text != "untyped" {
		t.Errorf("Untyped item with text should join, got %q", res.Text)
	}
}

func TestAnalyzeToolResultArtifact(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{
		"artifact_id": "art-1",
		"filename":    "report.xlsx",
		"url":         "https://files.example/art-1",
	})
	res := AnalyzeToolResult([]ContentItem{{Type: "text", Text: string(payload)}}, "p")

	if res.Type != ResultTypeArtifact {
		t.Fatalf("Expected artifact type, got %s", res.Type)
	}
	if res.Artifact == nil || res.Artifact.Filename != "report.xlsx" {
		t.Errorf("Unexpected artifact: %+v", res.Artifact)
	}
	if res.Display != "" {
		t.Errorf("Artifact results render from the artifact, display should be empty, got %q", res.Display)
	}
	if res.Empty() {
		t.Error("Artifact payload still counts as content")
	}
}

func TestAnalyzeToolResultAnswerNoMarkersKeepsAll(t *testing.T) {
	payload, _ := json.Marshal(map[string]interface{}{
		"answer": "Both documents agree.",
		"sources": []map[string]string{
			{"document_id": "11111111-2222-3333-4444-555555555555", "segment_id": "a"},
			{"document_id": "66666666-7777-8888-9999-000000000000", "segment_id": "b"},
		},
	})
	res := AnalyzeToolResult([]ContentItem{{Type: "text", Text: string(payload)}}, "p")

	if len(res.Sources) != 2 {
		t.Fatalf("No citation markers: all sources kept, got %d", len(res.Sources))
	}
	if res.Display != "Both documents agree." {
		t.Errorf("Expected the answer as display text, got %q", res.Display)
	}
}

func TestAnalyzeToolResultCitationCaseInsensitive(t *testing.T) {
	docA := "ABCDEF00-2222-3333-4444-555555555555"
	payload, _ := json.Marshal(map[string]interface{}{
		"answer": "See DOCUMENT_ID: abcdef00-2222-3333-4444-555555555555 for details.",
		"sources": []map[string]string{
			{"document_id": docA, "segment_id": "a"},
			{"document_id": "66666666-7777-8888-9999-000000000000", "segment_id": "b"},
		},
	})
	res := AnalyzeToolResult([]ContentItem{{Type: "text", Text: string(payload)}}, "p")

	if len(res.Sources) != 1 || res.Sources[0].DocumentID != docA {
		t.Errorf("Expected case-insensitive narrowing to %s, got %+v", docA, res.Sources)
	}
}

func TestAnalyzeToolResultSourcesNotArray(t *testing.T) {
	res := AnalyzeToolResult([]ContentItem{
		{Type: "text", Text: `{"answer":"yes","sources":"none"}`},
	}, "p")
	if res.Sources != nil {
		t.Errorf("Non-array sources should not classify as cited answer, got %+v", res.Sources)
	}
	if res.Display != res.Text {
		t.Errorf("Uncited payload displays raw, got %q", res.Display)
	}
}

func TestAnalyzeToolResultImages(t *testing.T) {
	res := AnalyzeToolResult([]ContentItem{
		{Type: "image", Format: "jpg", Source: "Zm9v"},
		{Type: "image", S3URL: "https://bucket.example/pic.png", Format: "png"},
		{Image: &ImagePayload{Format: "png", Source: BlockSource{Bytes: "YmFy"}}},
	}, "tool-img")

	if res.Type != ResultTypeImage {
		t.Fatalf("Expected image type, got %s", res.Type)
	}
	if len(res.Images) != 3 {
		t.Fatalf("Expected 3 images, got %d", len(res.Images))
	}
	if res.Images[0].Preview != "data:image/jpg;base64,Zm9v" {
		t.Errorf("Unexpected inline preview: %q", res.Images[0].Preview)
	}
	if res.Images[1].Preview != "https://bucket.example/pic.png" {
		t.Errorf("S3 reference should be used directly, got %q", res.Images[1].Preview)
	}
	if res.Images[2].Name != "generated-3.png" {
		t.Errorf("Unexpected generated name: %q", res.Images[2].Name)
	}
	if res.Images[0].ID != "tool-img-0" {
		t.Errorf("Attachment ids should carry the prefix, got %q", res.Images[0].ID)
	}
}

func TestAnalyzeToolResultCitedAnswerWithImages(t *testing.T) {
	res := AnalyzeToolResult([]ContentItem{
		{Type: "text", Text: `{"answer":"The chart shows Q3 revenue.","sources":[{"document_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"}]}`},
		{Type: "image", Format: "png", Source: "Zm9v"},
	}, "mixed")

	if res.Type != ResultTypeImage {
		t.Fatalf("Expected image type, got %s", res.Type)
	}
	if res.Display != "The chart shows Q3 revenue." {
		t.Errorf("Cited answer should display its answer text, got %q", res.Display)
	}
	if len(res.Sources) != 1 || len(res.Images) != 1 {
		t.Errorf("Expected sources and images preserved, got %d sources, %d images", len(res.Sources), len(res.Images))
	}
}

func TestAnalyzeToolResultImageWithoutBytesSkipped(t *testing.T) {
	res := AnalyzeToolResult([]ContentItem{{Type: "image", Format: "png"}}, "p")
	if len(res.Images) != 0 {
		t.Errorf("Image item without any payload should be skipped, got %d", len(res.Images))
	}
	if !res.Empty() {
		t.Error("Result with no text and no usable images is empty")
	}
}

func TestToolResultEmpty(t *testing.T) {
	res := AnalyzeToolResult(nil, "p")
	if !res.Empty() {
		t.Error("Nil items should analyze as empty")
	}
}
