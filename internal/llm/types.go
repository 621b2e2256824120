package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to invoke a named tool with structured
// arguments. ID correlates the eventual tool-role result message with
// this call; providers that do not issue IDs get synthetic ones.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition describes a callable tool to the model. Parameters is a
// JSON-schema object ({"type":"object","properties":{...},"required":[...]}).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Message represents a single message in a conversation. Assistant
// messages may carry ToolCalls; tool-role messages answer exactly one
// call, identified by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
	Tools       []ToolDefinition
}

// CompletionResponse contains the result of an LLM completion request.
// A non-empty ToolCalls means the model wants tools run before it can
// produce a final answer.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
