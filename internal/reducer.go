package internal

import (
	"fmt"
	"time"
)

// StreamReducer folds the ordered event stream of one in-flight turn into a
// live StreamingBlock sequence plus a queue of finalized Messages. The
// queue stays invisible until the turn's terminal response arrives; the
// caller then flushes everything at once via Finalize.
//
// Tool results carry no call identifier on the wire, so results are matched
// to their originating tool_use strictly by arrival order through a LIFO
// name stack. That correlation is only correct for non-overlapping tool
// calls.
//
// Not safe for concurrent use; the orchestrator serializes access.
type StreamReducer struct {
	blocks    []StreamingBlock
	pending   []Message
	toolNames []string

	now   func() time.Time
	newID func() string
}

// NewStreamReducer returns an empty reducer.
func NewStreamReducer() *StreamReducer {
	return &StreamReducer{
		now:   time.Now,
		newID: NewMessageID,
	}
}

// Blocks returns a copy of the live streaming-block sequence.
func (r *StreamReducer) Blocks() []StreamingBlock {
	out := make([]StreamingBlock, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// PendingCount returns how many finalized messages await the flush.
func (r *StreamReducer) PendingCount() int {
	return len(r.pending)
}

// Apply folds one inbound stream event.
func (r *StreamReducer) Apply(ev StreamEvent) {
	switch ev.Type {
	case EventText:
		r.applyText(ev.Text)
	case EventToolUse:
		r.applyToolUse(ev.Name)
	case EventToolResult:
		r.applyToolResult(ev.Content)
	case EventStageStart:
		r.blocks = append(r.blocks, StreamingBlock{Kind: BlockStageStart, Stage: ev.Stage})
	case EventStageComplete:
		r.applyStageComplete(ev.Stage, ev.Result)
	case EventComplete:
		r.dropUnresolved()
	default:
		LogDebug("Ignoring unknown stream event type %q", ev.Type)
	}
}

// applyText appends the fragment to the trailing text block, or opens a new
// one. Two adjacent text blocks never coexist.
func (r *StreamReducer) applyText(text string) {
	if text == "" {
		return
	}
	if n := len(r.blocks); n > 0 && r.blocks[n-1].Kind == BlockText {
		r.blocks[n-1].Content += text
		return
	}
	r.blocks = append(r.blocks, StreamingBlock{Kind: BlockText, Content: text})
}

// applyToolUse records the call name for later correlation and pushes a
// tool_use block unless one with the same name is already live (duplicate
// start notifications happen).
func (r *StreamReducer) applyToolUse(name string) {
	r.toolNames = append(r.toolNames, name)
	for _, b := range r.blocks {
		if b.Kind == BlockToolUse && b.Name == name {
			return
		}
	}
	r.blocks = append(r.blocks, StreamingBlock{Kind: BlockToolUse, Name: name})
}

func (r *StreamReducer) applyToolResult(items []ContentItem) {
	toolName := r.popToolName()

	if items == nil {
		return
	}

	res := AnalyzeToolResult(items, fmt.Sprintf("stream-tool-img-%s", r.newID()))
	if res.Empty() {
		return
	}

	// Replace the most recent live tool_use block with the result.
	r.removeLastToolUse()

	block := StreamingBlock{
		Kind:       BlockToolResult,
		ResultType: res.Type,
		Content:    res.Display,
		Sources:    res.Sources,
		ToolName:   toolName,
	}
	for _, img := range res.Images {
		if img.Preview != "" {
			block.Images = append(block.Images, ToolResultImage{Src: img.Preview, Alt: img.Name})
		}
	}
	r.blocks = append(r.blocks, block)

	content := res.Display
	if content == "" && res.Type != ResultTypeArtifact {
		content = res.Text
	}
	msg := Message{
		ID:             r.newID(),
		Role:           RoleAssistant,
		Content:        content,
		Timestamp:      r.now(),
		IsToolResult:   true,
		ToolResultType: res.Type,
		Artifact:       res.Artifact,
		Sources:        res.Sources,
		ToolName:       toolName,
	}
	if len(res.Images) > 0 {
		msg.Attachments = res.Images
	}
	r.pending = append(r.pending, msg)
}

// applyStageComplete replaces the matching stage_start block (appending
// when none matches) and enqueues the stage-result message.
func (r *StreamReducer) applyStageComplete(stage, result string) {
	r.pending = append(r.pending, Message{
		ID:            r.newID(),
		Role:          RoleAssistant,
		Content:       result,
		Timestamp:     r.now(),
		IsStageResult: true,
		StageName:     stage,
	})

	done := StreamingBlock{Kind: BlockStageComplete, Stage: stage, Result: result}
	for i, b := range r.blocks {
		if b.Kind == BlockStageStart && b.Stage == stage {
			r.blocks[i] = done
			return
		}
	}
	r.blocks = append(r.blocks, done)
}

// dropUnresolved removes tool_use and stage_start blocks that never saw a
// result; they are treated as abandoned once the turn completes.
func (r *StreamReducer) dropUnresolved() {
	kept := r.blocks[:0]
	for _, b := range r.blocks {
		if b.Kind == BlockToolUse || b.Kind == BlockStageStart {
			continue
		}
		kept = append(kept, b)
	}
	r.blocks = kept
}

func (r *StreamReducer) popToolName() string {
	n := len(r.toolNames)
	if n == 0 {
		return ""
	}
	name := r.toolNames[n-1]
	r.toolNames = r.toolNames[:n-1]
	return name
}

func (r *StreamReducer) removeLastToolUse() {
	for i := len(r.blocks) - 1; i >= 0; i-- {
		if r.blocks[i].Kind == BlockToolUse {
			r.blocks = append(r.blocks[:i], r.blocks[i+1:]...)
			return
		}
	}
}

// Finalize converts the queued tool/stage messages plus the turn's final
// response into the slice to append to the session transcript, in arrival
// order, then clears all streaming state.
func (r *StreamReducer) Finalize(finalText string) []Message {
	out := make([]Message, 0, len(r.pending)+1)
	out = append(out, r.pending...)
	out = append(out, Message{
		ID:        r.newID(),
		Role:      RoleAssistant,
		Content:   finalText,
		Timestamp: r.now(),
	})
	r.Reset()
	return out
}

// Fail converts a request-level failure into a single synthetic assistant
// error message and clears all streaming state. Queued tool messages are
// discarded with the rest of the turn; the failure is not retried here.
func (r *StreamReducer) Fail(err error) []Message {
	msg := Message{
		ID:        r.newID(),
		Role:      RoleAssistant,
		Content:   fmt.Sprintf("Failed to get response: %v", err),
		Timestamp: r.now(),
	}
	r.Reset()
	return []Message{msg}
}

// Reset discards all in-flight state: blocks, pending queue, and the
// correlation stack.
func (r *StreamReducer) Reset() {
	r.blocks = nil
	r.pending = nil
	r.toolNames = nil
}
