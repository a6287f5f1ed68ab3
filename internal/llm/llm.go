// Package llm defines the provider contracts the orchestrator and data
// layer depend on. The orchestrator never talks to a concrete provider:
// it receives an Embedder and a Completer at construction so tests can
// substitute scripted stubs.
package llm

import (
	"context"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// Embedder converts text to a fixed-dimension vector.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed output dimensionality.
	Dimension() int
}

// ToolSchema describes a tool the completion provider may (or must) call.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema of the arguments object
}

// CompleteOptions tune a single completion request.
type CompleteOptions struct {
	// ForceTool, when set, constrains the provider to emit exactly one
	// invocation of this tool instead of free text.
	ForceTool *ToolSchema
}

// Completion is the provider's response: free text, or a tool call when
// tools were offered/forced.
type Completion struct {
	Content  string
	ToolCall *models.ToolCall
}

// Completer produces a completion for a structured prompt.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message, opts CompleteOptions) (*Completion, error)
}
