package models

// Message roles. The ordered sequence of messages in a thread is the
// conversation history; order is turn order.
const (
	RoleSystem = "system"
	RoleHuman  = "human"
	RoleAI     = "ai"
	RoleTool   = "tool"
)

// ToolCall describes a tool invocation emitted by the completion provider.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON
}

// Message represents a single message in a conversation thread.
// Immutable once appended.
type Message struct {
	ID         string     `json:"id"` // ULID
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // on AI messages that invoke tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // on tool-result messages
	Timestamp  int64      `json:"ts"` // Unix ms
}
