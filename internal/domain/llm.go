package domain

// Turn is one entry in the conversation sent to the backend.
type Turn struct {
	Role  Role
	Parts []Part
}

// Part is one piece of a turn. Exactly one field is set; an all-zero Part
// serializes as empty text.
type Part struct {
	Text             string
	Inline           *InlineData
	FunctionCall     *FunctionCall
	FunctionResponse *FunctionResponse
}

// InlineData carries binary content, such as a captured code image.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// FunctionCall is a tool invocation requested by the backend.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// FunctionResponse reports a tool's outcome back to the backend.
type FunctionResponse struct {
	Name     string
	Response map[string]any
}

// The single tool the backend may invoke, and its one required argument.
const (
	MemoryToolName = "updateGlobalMemory"
	MemoryToolArg  = "information"
)

// GenerateRequest is one multi-turn backend call.
type GenerateRequest struct {
	SystemInstruction string
	Turns             []Turn
	// EnableMemoryTool advertises updateGlobalMemory. Only the primary call of
	// a turn sets it; the tool follow-up never does.
	EnableMemoryTool bool
}

// GenerateResult is the backend's reply: the text, and the tool invocation if
// one was requested.
type GenerateResult struct {
	Text string
	Call *FunctionCall
}
