package bot

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/eldtechnologies/faqbot/internal/models"
)

// Counter measures the budget cost of messages. The windower treats the
// unit as opaque: messages or tokens, depending on the strategy.
type Counter interface {
	Count(msgs []models.Message) int
}

// MessageCounter costs one unit per message.
type MessageCounter struct{}

func (MessageCounter) Count(msgs []models.Message) int { return len(msgs) }

// TokenCounter costs messages by their cl100k_base token count, with a
// small per-message overhead for role and separators.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a tiktoken-backed counter.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TokenCounter{encoding: enc}, nil
}

func (t *TokenCounter) Count(msgs []models.Message) int {
	tokens := 0
	for _, m := range msgs {
		// per-message overhead (role, separators) is about 4 tokens
		tokens += 4
		tokens += len(t.encoding.Encode(m.Content, nil, nil))
		tokens += len(t.encoding.Encode(m.Role, nil, nil))
	}
	return tokens
}

// Windower bounds the history fed to the generation step. It keeps the
// newest messages that fit the budget, never splits a message, always
// retains a leading system message, and after truncation drops leading
// messages until the window starts on a human turn.
type Windower struct {
	budget  int
	counter Counter
}

// NewWindower creates a windower with the given budget and counting
// strategy. A nil counter means message counting.
func NewWindower(budget int, counter Counter) *Windower {
	if counter == nil {
		counter = MessageCounter{}
	}
	return &Windower{budget: budget, counter: counter}
}

// Window returns the bounded view of msgs.
func (w *Windower) Window(msgs []models.Message) []models.Message {
	if len(msgs) == 0 {
		return msgs
	}

	rest := msgs
	var system []models.Message
	if msgs[0].Role == models.RoleSystem {
		system = msgs[:1]
		rest = msgs[1:]
	}

	budget := w.budget - w.counter.Count(system)

	// Largest suffix of rest that fits the remaining budget.
	start := len(rest)
	used := 0
	for start > 0 {
		cost := w.counter.Count(rest[start-1 : start])
		if used+cost > budget {
			break
		}
		used += cost
		start--
	}

	// When truncation occurred, the window must open on a human turn so
	// the provider never sees a dangling tool result or AI reply.
	if start > 0 {
		for start < len(rest) && rest[start].Role != models.RoleHuman {
			start++
		}
	}

	out := make([]models.Message, 0, len(system)+len(rest)-start)
	out = append(out, system...)
	out = append(out, rest[start:]...)
	return out
}
