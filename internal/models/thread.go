package models

// ThreadState is the checkpointed state of a single conversation thread.
// The thread ID is opaque and caller-supplied (for the WhatsApp webhook it
// is the sender's phone number). State is owned by the checkpoint store;
// the orchestrator reads a snapshot at invocation start and writes the
// updated snapshot at invocation end.
type ThreadState struct {
	ThreadID    string        `json:"thread_id"`
	History     []Message     `json:"history"`
	LastPersona PersonaConfig `json:"last_persona"`
}

// NewThreadState returns an empty state for a thread seen for the first time.
func NewThreadState(threadID string) *ThreadState {
	return &ThreadState{ThreadID: threadID}
}

// Clone returns a deep copy so a caller can mutate freely without aliasing
// the stored history.
func (s *ThreadState) Clone() *ThreadState {
	out := &ThreadState{
		ThreadID:    s.ThreadID,
		LastPersona: s.LastPersona,
	}
	if len(s.History) > 0 {
		out.History = make([]Message, len(s.History))
		copy(out.History, s.History)
	}
	return out
}
