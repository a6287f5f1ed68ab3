package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/faqbot/internal/data"
	"github.com/eldtechnologies/faqbot/internal/llm"
	"github.com/eldtechnologies/faqbot/internal/models"
	"github.com/eldtechnologies/faqbot/internal/store"
)

const testDims = 8

// stubEmbedder maps identical text to identical vectors.
type stubEmbedder struct {
	calls int
	fail  bool
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedding provider down")
	}
	v := make([]float32, testDims)
	for i, b := range []byte(text) {
		v[i%testDims] += float32(b)
	}
	return v, nil
}

func (e *stubEmbedder) Dimension() int { return testDims }

// completerCall records one request to the stub completer.
type completerCall struct {
	messages []models.Message
	forced   bool
}

// stubCompleter answers a forced call with a retrieve tool call and an
// unforced call with canned content.
type stubCompleter struct {
	calls       []completerCall
	reply       string
	failOn      int // 1-based call index to fail at; 0 = never
	noToolCall  bool
	badToolArgs bool
}

func (c *stubCompleter) Complete(ctx context.Context, messages []models.Message, opts llm.CompleteOptions) (*llm.Completion, error) {
	c.calls = append(c.calls, completerCall{messages: messages, forced: opts.ForceTool != nil})
	if c.failOn == len(c.calls) {
		return nil, errors.New("completion provider down")
	}

	if opts.ForceTool != nil {
		if c.noToolCall {
			return &llm.Completion{Content: "I would rather chat"}, nil
		}
		args := `{"query":"` + lastHuman(messages) + `"}`
		if c.badToolArgs {
			args = `{"query":`
		}
		return &llm.Completion{ToolCall: &models.ToolCall{
			ID:        "call_1",
			Name:      opts.ForceTool.Name,
			Arguments: args,
		}}, nil
	}

	reply := c.reply
	if reply == "" {
		reply = "stubbed reply"
	}
	return &llm.Completion{Content: reply}, nil
}

// lastHuman returns the content of the last human message.
func lastHuman(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleHuman {
			return messages[i].Content
		}
	}
	return ""
}

// failingVectorStore always fails similarity search.
type failingVectorStore struct{}

func (failingVectorStore) Close()                             {}
func (failingVectorStore) Ping(ctx context.Context) error     { return errors.New("store down") }
func (failingVectorStore) Dimension() int                     { return testDims }
func (failingVectorStore) Upsert(ctx context.Context, doc *models.Document) error {
	return errors.New("store down")
}
func (failingVectorStore) Delete(ctx context.Context, ids []string) (int64, error) {
	return 0, errors.New("store down")
}
func (failingVectorStore) Query(ctx context.Context, q store.DocumentQuery) (*store.DocumentPage, error) {
	return nil, errors.New("store down")
}
func (failingVectorStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]models.DocumentMatch, error) {
	return nil, errors.New("store down")
}

// failingCheckpoints fails every operation.
type failingCheckpoints struct{}

func (failingCheckpoints) LoadThread(ctx context.Context, threadID string) (*models.ThreadState, error) {
	return nil, errors.New("checkpoints down")
}

func (failingCheckpoints) SaveThread(ctx context.Context, state *models.ThreadState) error {
	return errors.New("checkpoints down")
}

func testPersona() models.PersonaConfig {
	return models.PersonaConfig{
		BotName:          "Maya",
		About:            "a support specialist",
		Tone:             "friendly",
		ResponseStyle:    "conversational",
		ConcisenessLevel: "concise",
	}
}

type fixture struct {
	agent       *Agent
	completer   *stubCompleter
	embedder    *stubEmbedder
	checkpoints store.CheckpointStore
	vectors     store.VectorStore
}

func newFixture(t *testing.T, vectors store.VectorStore, completer *stubCompleter) *fixture {
	t.Helper()
	if vectors == nil {
		mem := store.NewMemoryStore(testDims)
		embedder := &stubEmbedder{}
		v, _ := embedder.Embed(context.Background(), "What are your hours?")
		mem.Upsert(context.Background(), &models.Document{
			ID:        "doc-1",
			Query:     "What are your hours?",
			Answer:    "We are open 9-5.",
			Embedding: v,
		})
		vectors = mem
	}
	if completer == nil {
		completer = &stubCompleter{}
	}

	embedder := &stubEmbedder{}
	checkpoints := store.NewMemoryCheckpoints()
	dataService := data.NewService(embedder, vectors)
	retriever := NewRetriever(dataService, zerolog.Nop())
	agent := NewAgent(completer, retriever, checkpoints, NewWindower(10, nil), zerolog.Nop())

	return &fixture{
		agent:       agent,
		completer:   completer,
		embedder:    embedder,
		checkpoints: checkpoints,
		vectors:     vectors,
	}
}

func TestInvokeRetrievesBeforeGenerating(t *testing.T) {
	f := newFixture(t, nil, nil)

	reply, err := f.agent.Invoke(context.Background(), "What are your hours?", "t1", testPersona())
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if reply != "stubbed reply" {
		t.Errorf("unexpected reply: %q", reply)
	}

	// Exactly one forced (retrieval-query) call followed by exactly one
	// unconstrained generation call.
	if len(f.completer.calls) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(f.completer.calls))
	}
	if !f.completer.calls[0].forced {
		t.Error("first completion call should force the retrieve tool")
	}
	if f.completer.calls[1].forced {
		t.Error("generation call should not force a tool")
	}
	if f.embedder.calls != 1 {
		t.Errorf("expected 1 embedding call, got %d", f.embedder.calls)
	}
}

func TestForcedCallSeesOnlyCurrentTurn(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.agent.Invoke(context.Background(), "first question", "t1", testPersona())
	f.agent.Invoke(context.Background(), "second question", "t1", testPersona())

	forced := f.completer.calls[2]
	if !forced.forced {
		t.Fatal("third call should be the second turn's forced call")
	}
	// instruction + the new human message only, no prior history
	if len(forced.messages) != 2 {
		t.Fatalf("forced call should see 2 messages, got %d", len(forced.messages))
	}
	if forced.messages[1].Content != "second question" {
		t.Errorf("forced call should see the current question, got %q", forced.messages[1].Content)
	}
}

func TestGenerationSeesPersonaAndEvidence(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.agent.Invoke(context.Background(), "What are your hours?", "t1", testPersona())
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}

	gen := f.completer.calls[1]
	if gen.messages[0].Role != models.RoleSystem {
		t.Fatal("generation prompt should start with the system message")
	}
	if !strings.Contains(gen.messages[0].Content, "Maya") {
		t.Error("persona bot name should be rendered into the system prompt")
	}
	var sawEvidence bool
	for _, m := range gen.messages {
		if m.Role == models.RoleTool && strings.Contains(m.Content, "We are open 9-5.") {
			sawEvidence = true
		}
	}
	if !sawEvidence {
		t.Error("generation prompt should include the retrieved evidence")
	}
}

func TestThreadIsolation(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.agent.Invoke(context.Background(), "question from A", "thread-a", testPersona())
	f.agent.Invoke(context.Background(), "question from B", "thread-b", testPersona())
	f.agent.Invoke(context.Background(), "followup from A", "thread-a", testPersona())

	// The third turn's generation call must carry A's history, not B's.
	gen := f.completer.calls[5]
	joined := ""
	for _, m := range gen.messages {
		joined += m.Content + "\n"
	}
	if !strings.Contains(joined, "question from A") {
		t.Error("thread A's second turn should see A's first turn")
	}
	if strings.Contains(joined, "question from B") {
		t.Error("thread A must not see thread B's history")
	}

	stateA, _ := f.checkpoints.LoadThread(context.Background(), "thread-a")
	stateB, _ := f.checkpoints.LoadThread(context.Background(), "thread-b")
	if len(stateA.History) != 8 {
		t.Errorf("thread A should have 2 turns (8 messages), got %d", len(stateA.History))
	}
	if len(stateB.History) != 4 {
		t.Errorf("thread B should have 1 turn (4 messages), got %d", len(stateB.History))
	}
}

func TestRetrievalFallback(t *testing.T) {
	f := newFixture(t, failingVectorStore{}, nil)

	reply, err := f.agent.Invoke(context.Background(), "What are your hours?", "t1", testPersona())
	if err != nil {
		t.Fatalf("invoke should not fail on retrieval errors: %v", err)
	}
	if reply == "" {
		t.Error("expected a reply despite retrieval failure")
	}

	state, _ := f.checkpoints.LoadThread(context.Background(), "t1")
	var toolMsg *models.Message
	for i := range state.History {
		if state.History[i].Role == models.RoleTool {
			toolMsg = &state.History[i]
		}
	}
	if toolMsg == nil {
		t.Fatal("expected a tool-result message in history")
	}
	if toolMsg.Content != FallbackText {
		t.Errorf("tool result should be the fallback text, got %q", toolMsg.Content)
	}
}

func TestEmptyStoreFallsBack(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(testDims), nil)

	reply, err := f.agent.Invoke(context.Background(), "What are your hours?", "t1", testPersona())
	if err != nil {
		t.Fatalf("invoke should not fail on an empty knowledge store: %v", err)
	}
	if reply == "" {
		t.Error("expected a reply despite the empty store")
	}

	state, _ := f.checkpoints.LoadThread(context.Background(), "t1")
	var toolMsg *models.Message
	for i := range state.History {
		if state.History[i].Role == models.RoleTool {
			toolMsg = &state.History[i]
		}
	}
	if toolMsg == nil {
		t.Fatal("expected a tool-result message in history")
	}
	if toolMsg.Content != FallbackText {
		t.Errorf("an empty store should yield the fallback text, got %q", toolMsg.Content)
	}
}

func TestAtomicCommitOnGenerationFailure(t *testing.T) {
	f := newFixture(t, nil, &stubCompleter{failOn: 2})

	before, _ := f.checkpoints.LoadThread(context.Background(), "t1")

	_, err := f.agent.Invoke(context.Background(), "What are your hours?", "t1", testPersona())
	if !IsGeneration(err) {
		t.Fatalf("expected GenerationError, got %v", err)
	}

	after, _ := f.checkpoints.LoadThread(context.Background(), "t1")
	if len(after.History) != len(before.History) {
		t.Errorf("failed turn must not mutate thread state: before %d, after %d messages",
			len(before.History), len(after.History))
	}
}

func TestMalformedForcedToolCall(t *testing.T) {
	for name, completer := range map[string]*stubCompleter{
		"no tool call":  {noToolCall: true},
		"bad arguments": {badToolArgs: true},
		"provider down": {failOn: 1},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil, completer)

			_, err := f.agent.Invoke(context.Background(), "hello", "t1", testPersona())
			if !IsGeneration(err) {
				t.Fatalf("expected GenerationError, got %v", err)
			}

			state, _ := f.checkpoints.LoadThread(context.Background(), "t1")
			if len(state.History) != 0 {
				t.Error("failed turn must not mutate thread state")
			}
		})
	}
}

func TestValidationRejectsBeforeProviderCalls(t *testing.T) {
	f := newFixture(t, nil, nil)

	cases := []struct {
		name     string
		question string
		threadID string
		persona  models.PersonaConfig
	}{
		{"empty question", "", "t1", testPersona()},
		{"blank question", "   ", "t1", testPersona()},
		{"empty thread id", "hello", "", testPersona()},
		{"incomplete persona", "hello", "t1", models.PersonaConfig{BotName: "Maya"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.agent.Invoke(context.Background(), tc.question, tc.threadID, tc.persona)
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
	if len(f.completer.calls) != 0 {
		t.Errorf("validation failures must not reach the provider, saw %d calls", len(f.completer.calls))
	}
}

func TestCheckpointFailureSurfaces(t *testing.T) {
	completer := &stubCompleter{}
	embedder := &stubEmbedder{}
	dataService := data.NewService(embedder, store.NewMemoryStore(testDims))
	retriever := NewRetriever(dataService, zerolog.Nop())
	agent := NewAgent(completer, retriever, failingCheckpoints{}, NewWindower(10, nil), zerolog.Nop())

	_, err := agent.Invoke(context.Background(), "hello", "t1", testPersona())
	if !IsCheckpoint(err) {
		t.Fatalf("expected CheckpointError, got %v", err)
	}
	if len(completer.calls) != 0 {
		t.Error("a turn with no history must not call the provider")
	}
}

func TestCancelledTurnCommitsNothing(t *testing.T) {
	f := newFixture(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.agent.Invoke(ctx, "hello", "t1", testPersona())
	if err == nil {
		t.Fatal("expected an error from a cancelled invocation")
	}

	state, _ := f.checkpoints.LoadThread(context.Background(), "t1")
	if len(state.History) != 0 {
		t.Error("cancelled turn must not commit thread state")
	}
}

func TestPersonaRecordedOnThread(t *testing.T) {
	f := newFixture(t, nil, nil)

	persona := testPersona()
	f.agent.Invoke(context.Background(), "hello", "t1", persona)

	state, _ := f.checkpoints.LoadThread(context.Background(), "t1")
	if state.LastPersona != persona {
		t.Errorf("thread should record the last persona, got %+v", state.LastPersona)
	}
}
