package models

import (
	"errors"
	"strings"
)

// PersonaConfig holds the stylistic parameters rendered into the system
// prompt for a reply. Supplied per invocation, never persisted on its own;
// a thread keeps the last persona it was invoked with so that silent
// mid-conversation persona drift can be detected by callers.
type PersonaConfig struct {
	BotName          string `json:"bot_name"`
	About            string `json:"about"`
	Tone             string `json:"tone"`             // e.g. "friendly", "professional"
	ResponseStyle    string `json:"response_style"`   // e.g. "conversational", "formal"
	ConcisenessLevel string `json:"conciseness_level"` // e.g. "concise", "elaborate"
}

// Validate checks that every persona field is set. There are no defaults:
// a missing field is a caller bug, not something to paper over.
func (p PersonaConfig) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"bot_name", p.BotName},
		{"about", p.About},
		{"tone", p.Tone},
		{"response_style", p.ResponseStyle},
		{"conciseness_level", p.ConcisenessLevel},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("persona config missing fields: " + strings.Join(missing, ", "))
	}
	return nil
}
