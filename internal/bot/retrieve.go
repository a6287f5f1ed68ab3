package bot

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/faqbot/internal/data"
	"github.com/eldtechnologies/faqbot/internal/llm"
	"github.com/eldtechnologies/faqbot/internal/metrics"
	"github.com/eldtechnologies/faqbot/internal/models"
)

// FallbackText is returned by the retrieval tool when embedding or search
// fails or the index holds no matching documents. Business continuity:
// the bot hands the user a human contact instead of erroring the turn.
const FallbackText = "No information found, please tell contact on this phone number: +123456789"

// retrieveToolName is the tool name the completion provider is forced to call.
const retrieveToolName = "retrieve"

// RetrieveSchema describes the retrieve tool for the completion provider.
func RetrieveSchema() *llm.ToolSchema {
	return &llm.ToolSchema{
		Name:        retrieveToolName,
		Description: "Retrieve information related to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}
}

// retrieveArgs is the forced tool call's argument payload.
type retrieveArgs struct {
	Query string `json:"query"`
}

// Retriever is the retrieval tool: embed the query, fetch the top-5
// nearest documents, and serialize them as the evidence handed to the
// generation step.
type Retriever struct {
	dataService *data.Service
	logger      zerolog.Logger
}

// NewRetriever creates the retrieval tool over the Data Service.
func NewRetriever(dataService *data.Service, logger zerolog.Logger) *Retriever {
	return &Retriever{dataService: dataService, logger: logger}
}

// Retrieve never fails: on any embedding or search error, or when the
// index holds no documents, it returns the fixed fallback text and empty
// evidence. k is fixed at 5 here; callers
// needing a different k use the Data Service directly.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, models.Evidence) {
	vector, err := r.dataService.Embed(ctx, query)
	if err != nil {
		return r.fallback(query, err)
	}

	matches, err := r.dataService.SimilaritySearch(ctx, vector, data.DefaultTopK)
	if err != nil {
		return r.fallback(query, err)
	}
	if len(matches) == 0 {
		return r.fallback(query, errors.New("no documents in the index"))
	}

	serialized, err := json.Marshal(matches)
	if err != nil {
		return r.fallback(query, err)
	}

	return string(serialized), models.Evidence{Matches: matches}
}

func (r *Retriever) fallback(query string, err error) (string, models.Evidence) {
	metrics.RetrievalFallbacks.Inc()
	r.logger.Warn().Err(err).Str("query", query).Msg("retrieval failed, using fallback")
	return FallbackText, models.Evidence{Fallback: true}
}
