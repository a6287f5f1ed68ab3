package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/faqbot/internal/data"
	"github.com/eldtechnologies/faqbot/internal/models"
	"github.com/eldtechnologies/faqbot/internal/store"
	"github.com/eldtechnologies/faqbot/internal/twilio"
)

// Agent answers one question on a conversation thread. Implemented by
// bot.Agent.
type Agent interface {
	Invoke(ctx context.Context, question, threadID string, persona models.PersonaConfig) (string, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	agent    Agent
	dataSvc  *data.Service
	vectors  store.VectorStore
	sender   *twilio.Client
	persona  models.PersonaConfig
	validate bool // enforce webhook signature validation
	token    string
	logger   zerolog.Logger
}

// NewHandler creates a new Handler with the given collaborators. The
// persona is the service-level default applied to webhook conversations.
func NewHandler(agent Agent, dataSvc *data.Service, vectors store.VectorStore, sender *twilio.Client, persona models.PersonaConfig, authToken string, validateSignatures bool, logger zerolog.Logger) *Handler {
	return &Handler{
		agent:    agent,
		dataSvc:  dataSvc,
		vectors:  vectors,
		sender:   sender,
		persona:  persona,
		validate: validateSignatures,
		token:    authToken,
		logger:   logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
