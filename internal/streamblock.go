package internal

// BlockKind tags the variant of a StreamingBlock.
type BlockKind string

const (
	BlockText          BlockKind = "text"
	BlockToolUse       BlockKind = "tool_use"
	BlockToolResult    BlockKind = "tool_result"
	BlockStageStart    BlockKind = "stage_start"
	BlockStageComplete BlockKind = "stage_complete"
)

// ToolResultImage is an inline image rendered inside a tool-result block.
type ToolResultImage struct {
	Src string
	Alt string
}

// StreamingBlock is the transient in-flight representation of one piece of
// an unfinished turn. Blocks live only while a turn streams; they are
// cleared wholesale when the turn completes or the voice connection drops.
// Which fields are meaningful depends on Kind.
type StreamingBlock struct {
	Kind BlockKind

	// BlockText, BlockToolResult
	Content string

	// BlockToolUse
	Name   string
	Status ToolUseStatus

	// BlockToolResult
	ResultType ToolResultType
	Images     []ToolResultImage
	Sources    []SourceRef
	ToolName   string

	// BlockStageStart, BlockStageComplete
	Stage  string
	Result string
}
