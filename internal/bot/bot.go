// Package bot implements the conversation orchestrator: a fixed-topology
// workflow that forces one retrieval step before one generation step,
// windows history under a bounded budget, renders the persona system
// prompt, and checkpoints per-thread state across invocations.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/faqbot/internal/llm"
	"github.com/eldtechnologies/faqbot/internal/metrics"
	"github.com/eldtechnologies/faqbot/internal/models"
	"github.com/eldtechnologies/faqbot/internal/store"
)

// queryInstruction steers the forced-tool completion that extracts the
// retrieval query. This step never answers the user.
const queryInstruction = "you have to call retrieve function"

// Agent orchestrates one conversation turn: QueryOrRespond -> Tools ->
// Generate. Every turn performs exactly one retrieval before exactly one
// generation; there is no answer-directly path. That bounds latency and
// cost per turn at the price of a retrieval round-trip on purely
// conversational messages.
type Agent struct {
	completer   llm.Completer
	retriever   *Retriever
	checkpoints store.CheckpointStore
	windower    *Windower
	locks       *threadLocks
	logger      zerolog.Logger
}

// NewAgent creates an orchestrator with injected collaborators.
func NewAgent(completer llm.Completer, retriever *Retriever, checkpoints store.CheckpointStore, windower *Windower, logger zerolog.Logger) *Agent {
	return &Agent{
		completer:   completer,
		retriever:   retriever,
		checkpoints: checkpoints,
		windower:    windower,
		locks:       newThreadLocks(),
		logger:      logger,
	}
}

// Invoke answers one question on the given thread. The thread's state is
// updated with the new human message, the tool-call and tool-result
// messages, and the final AI message, in that order — atomically: a
// failed turn commits nothing.
func (a *Agent) Invoke(ctx context.Context, question, threadID string, persona models.PersonaConfig) (string, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return "", &ValidationError{Message: "question must not be empty"}
	}
	if threadID == "" {
		return "", &ValidationError{Message: "thread id must not be empty"}
	}
	if err := persona.Validate(); err != nil {
		return "", &ValidationError{Message: err.Error()}
	}

	// Same-thread turns are serialized; distinct threads proceed
	// concurrently with no shared state beyond the checkpoint store.
	release := a.locks.acquire(threadID)
	defer release()

	state, err := a.checkpoints.LoadThread(ctx, threadID)
	if err != nil {
		metrics.Invocations.WithLabelValues("checkpoint_error").Inc()
		return "", &CheckpointError{Op: "load", Err: err}
	}

	humanMsg := newMessage(models.RoleHuman, question)

	// QueryOrRespond: force the provider to emit one retrieve call. Only
	// the current turn's human message is in context — this step produces
	// a well-formed retrieval query, never an answer.
	toolCall, err := a.forceRetrieveCall(ctx, humanMsg)
	if err != nil {
		metrics.Invocations.WithLabelValues("generation_error").Inc()
		return "", err
	}

	var args retrieveArgs
	if err := json.Unmarshal([]byte(toolCall.Arguments), &args); err != nil {
		metrics.Invocations.WithLabelValues("generation_error").Inc()
		return "", &GenerationError{Stage: "query", Err: fmt.Errorf("malformed tool arguments: %w", err)}
	}
	if strings.TrimSpace(args.Query) == "" {
		metrics.Invocations.WithLabelValues("generation_error").Inc()
		return "", &GenerationError{Stage: "query", Err: fmt.Errorf("tool call missing query argument")}
	}

	// Tools: execute retrieval synchronously. Never fails — degraded
	// retrieval yields the fallback evidence and the turn proceeds.
	serialized, evidence := a.retriever.Retrieve(ctx, args.Query)

	callMsg := newMessage(models.RoleAI, "")
	callMsg.ToolCalls = []models.ToolCall{*toolCall}

	toolMsg := newMessage(models.RoleTool, serialized)
	toolMsg.ToolCallID = toolCall.ID

	// Generate: persona system prompt plus windowed history, unforced.
	turn := append(state.Clone().History, humanMsg, callMsg, toolMsg)
	prompt := append([]models.Message{newMessage(models.RoleSystem, RenderPersonaPrompt(persona))}, turn...)
	windowed := a.windower.Window(prompt)

	completion, err := a.completer.Complete(ctx, windowed, llm.CompleteOptions{})
	if err != nil {
		metrics.Invocations.WithLabelValues("generation_error").Inc()
		return "", &GenerationError{Stage: "generate", Err: err}
	}
	aiMsg := newMessage(models.RoleAI, completion.Content)

	// Atomic turn commit. A cancelled invocation must not persist a
	// partial turn.
	if err := ctx.Err(); err != nil {
		metrics.Invocations.WithLabelValues("cancelled").Inc()
		return "", err
	}

	state.History = append(state.History, humanMsg, callMsg, toolMsg, aiMsg)
	state.LastPersona = persona
	if err := a.checkpoints.SaveThread(ctx, state); err != nil {
		metrics.Invocations.WithLabelValues("checkpoint_error").Inc()
		return "", &CheckpointError{Op: "save", Err: err}
	}

	metrics.Invocations.WithLabelValues("ok").Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	a.logger.Info().
		Str("thread_id", threadID).
		Int("history_len", len(state.History)).
		Int("window_len", len(windowed)).
		Int("evidence", len(evidence.Matches)).
		Bool("fallback", evidence.Fallback).
		Dur("latency", time.Since(start)).
		Msg("turn completed")

	return completion.Content, nil
}

// forceRetrieveCall runs the QueryOrRespond step and validates that the
// provider honored the forced tool choice.
func (a *Agent) forceRetrieveCall(ctx context.Context, humanMsg models.Message) (*models.ToolCall, error) {
	messages := []models.Message{
		newMessage(models.RoleSystem, queryInstruction),
		humanMsg,
	}

	completion, err := a.completer.Complete(ctx, messages, llm.CompleteOptions{ForceTool: RetrieveSchema()})
	if err != nil {
		return nil, &GenerationError{Stage: "query", Err: err}
	}
	if completion.ToolCall == nil {
		return nil, &GenerationError{Stage: "query", Err: fmt.Errorf("provider returned no tool call")}
	}
	if completion.ToolCall.Name != retrieveToolName {
		return nil, &GenerationError{Stage: "query", Err: fmt.Errorf("provider called unexpected tool %q", completion.ToolCall.Name)}
	}
	return completion.ToolCall, nil
}

// newMessage builds a message with a fresh ULID and current timestamp.
func newMessage(role, content string) models.Message {
	return models.Message{
		ID:        ulid.Make().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}
