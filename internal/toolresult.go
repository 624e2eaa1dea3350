package internal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// citationPattern matches document_id references embedded in answer text,
// permissively: "document_id=<uuid>", "document_id: <uuid>", etc.
var citationPattern = regexp.MustCompile(`(?i)document_id[=:]?\s*([0-9a-f-]{36})`)

// artifactEnvelope is the JSON shape an artifact-producing tool returns.
type artifactEnvelope struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	S3Key      string `json:"s3_key"`
	S3Bucket   string `json:"s3_bucket"`
	CreatedAt  string `json:"created_at"`
}

// answerEnvelope is the JSON shape a search-with-citations tool returns.
type answerEnvelope struct {
	Answer  string          `json:"answer"`
	Sources json.RawMessage `json:"sources"`
}

// ToolResult is the classified view of a tool invocation's output,
// produced identically whether the output arrived live on the stream or
// from persisted history.
type ToolResult struct {
	Type    ToolResultType
	Text    string // newline-joined raw text content
	Display string // what to render: answer text for cited results, empty for artifacts

	Artifact *Artifact
	Sources  []SourceRef
	Images   []Attachment
}

// Empty reports whether the result carried neither text nor images.
func (r *ToolResult) Empty() bool {
	return r.Text == "" && len(r.Images) == 0
}

// AnalyzeToolResult extracts and classifies a tool result's content items.
// The text payload is sniffed opportunistically as JSON to detect artifact
// descriptors and cited answers; parse failures fall back to plain text.
// attachPrefix namespaces the generated image attachment ids.
func AnalyzeToolResult(items []ContentItem, attachPrefix string) ToolResult {
	res := ToolResult{Type: ResultTypeText}

	res.Text = joinTextItems(items)

	res.Artifact, res.Sources = sniffResultShapes(res.Text)
	if res.Artifact != nil {
		res.Type = ResultTypeArtifact
	}

	res.Images = imageAttachments(items, attachPrefix, "generated")
	if len(res.Images) > 0 {
		res.Type = ResultTypeImage
	}

	switch {
	case res.Type == ResultTypeArtifact:
		res.Display = ""
	case res.Sources != nil:
		// Cited answers render their answer text even when the result also
		// carried images: the raw envelope JSON is never worth showing.
		res.Display = answerText(res.Text)
	default:
		res.Display = res.Text
	}

	return res
}

// joinTextItems concatenates the text content items, newline-separated.
// Items lacking an explicit type still count as text when they carry one.
func joinTextItems(items []ContentItem) string {
	var parts []string
	for _, item := range items {
		if item.Text == "" {
			continue
		}
		if item.Type == "text" || item.Type == "" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// sniffResultShapes tries the two special JSON shapes against the text
// payload. A non-JSON payload, or one matching neither shape, yields
// (nil, nil): plain text is not an error.
func sniffResultShapes(text string) (*Artifact, []SourceRef) {
	var art artifactEnvelope
	if err := json.Unmarshal([]byte(text), &art); err == nil && art.ArtifactID != "" && art.Filename != "" {
		return &Artifact{
			ArtifactID: art.ArtifactID,
			Filename:   art.Filename,
			URL:        art.URL,
			S3Key:      art.S3Key,
			S3Bucket:   art.S3Bucket,
			CreatedAt:  art.CreatedAt,
		}, nil
	}

	var ans answerEnvelope
	if err := json.Unmarshal([]byte(text), &ans); err == nil && ans.Answer != "" {
		var sources []SourceRef
		if err := json.Unmarshal(ans.Sources, &sources); err == nil && sources != nil {
			return nil, narrowSources(ans.Answer, sources)
		}
	}

	return nil, nil
}

// narrowSources keeps only the sources whose document_id is textually
// referenced inside the answer. When the answer carries no citation
// markers at all, the full source list is kept.
func narrowSources(answer string, sources []SourceRef) []SourceRef {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return sources
	}
	referenced := make(map[string]bool, len(matches))
	for _, m := range matches {
		referenced[strings.ToLower(m[1])] = true
	}
	narrowed := make([]SourceRef, 0, len(sources))
	for _, s := range sources {
		if referenced[strings.ToLower(s.DocumentID)] {
			narrowed = append(narrowed, s)
		}
	}
	return narrowed
}

// answerText re-extracts the answer field for display; falls back to the
// raw text when the payload is not the expected shape.
func answerText(text string) string {
	var ans answerEnvelope
	if err := json.Unmarshal([]byte(text), &ans); err == nil && ans.Answer != "" {
		return ans.Answer
	}
	return text
}

// imageAttachments maps image content items to attachments. An item counts
// as an image when it is typed image (or untyped with a nested image
// payload) and carries bytes inline or by s3 reference.
func imageAttachments(items []ContentItem, attachPrefix, baseName string) []Attachment {
	var out []Attachment
	for _, item := range items {
		isImage := item.Type == "image" || (item.Type == "" && item.Image != nil)
		if !isImage {
			continue
		}
		var nestedBytes string
		if item.Image != nil {
			nestedBytes = item.Image.Source.Bytes
		}
		if item.S3URL == "" && item.Source == "" && nestedBytes == "" {
			continue
		}

		format := item.Format
		if format == "" && item.Image != nil {
			format = item.Image.Format
		}
		if format == "" {
			format = "png"
		}

		preview := item.S3URL
		if preview == "" {
			data := item.Source
			if data == "" {
				data = nestedBytes
			}
			preview = fmt.Sprintf("data:image/%s;base64,%s", format, data)
		}

		idx := len(out)
		out = append(out, Attachment{
			ID:      fmt.Sprintf("%s-%d", attachPrefix, idx),
			Kind:    AttachmentImage,
			Name:    fmt.Sprintf("%s-%d.%s", baseName, idx+1, format),
			Preview: preview,
		})
	}
	return out
}
