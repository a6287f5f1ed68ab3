package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/eldtechnologies/faqbot/internal/data"
	"github.com/eldtechnologies/faqbot/internal/metrics"
	"github.com/eldtechnologies/faqbot/internal/store"
)

// IngestResponse is the response to a data add request.
type IngestResponse struct {
	IDs      []string `json:"ids"`
	Inserted int      `json:"inserted"`
	Errors   string   `json:"errors,omitempty"`
}

// RemoveRequest is the body of a data remove request.
type RemoveRequest struct {
	IDs []string `json:"ids"`
}

// RemoveResponse is the response to a data remove request.
type RemoveResponse struct {
	Removed int64 `json:"removed"`
}

// ListData handles GET /api/data with page, limit, search and filter
// query parameters. filter is a JSON array of {field,op,value} predicates.
func (h *Handler) ListData(w http.ResponseWriter, r *http.Request) {
	params := data.ListParams{
		Search: r.URL.Query().Get("search"),
	}

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.Error(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		params.Page = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		params.Limit = n
	}
	if v := r.URL.Query().Get("filter"); v != "" {
		var filters []store.Predicate
		if err := json.Unmarshal([]byte(v), &filters); err != nil {
			h.Error(w, http.StatusBadRequest, "filter must be a JSON array of predicates")
			return
		}
		params.Filters = filters
	}

	page, err := h.dataSvc.List(r.Context(), params)
	if err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.JSON(w, http.StatusOK, page)
}

// AddData handles POST /api/data/add with a JSON array of {query,answer}.
func (h *Handler) AddData(w http.ResponseWriter, r *http.Request) {
	var items []data.IngestItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(items) == 0 {
		h.Error(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	ids, err := h.dataSvc.Ingest(r.Context(), items)
	metrics.DocumentsIngested.Add(float64(len(ids)))

	resp := IngestResponse{IDs: ids, Inserted: len(ids)}
	if err != nil {
		resp.Errors = err.Error()
	}

	// Partial success still reports the ids that made it in.
	status := http.StatusOK
	if len(ids) == 0 && err != nil {
		status = http.StatusBadRequest
	}
	h.JSON(w, status, resp)
}

// RemoveData handles POST /api/data/remove.
func (h *Handler) RemoveData(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		h.Error(w, http.StatusBadRequest, "ids are required")
		return
	}

	removed, err := h.dataSvc.Remove(r.Context(), req.IDs)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to remove documents")
		return
	}
	metrics.DocumentsRemoved.Add(float64(removed))

	h.JSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

// SearchData handles GET /api/data/search?q=...&k=... — embeds the query
// and runs a similarity search.
func (h *Handler) SearchData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			h.Error(w, http.StatusBadRequest, "k must be between 1 and 10")
			return
		}
		k = n
	}

	vector, err := h.dataSvc.Embed(r.Context(), q)
	if err != nil {
		h.Error(w, http.StatusBadGateway, "embedding failed")
		return
	}

	matches, err := h.dataSvc.SimilaritySearch(r.Context(), vector, k)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "search failed")
		return
	}
	metrics.SimilaritySearches.Inc()

	h.JSON(w, http.StatusOK, matches)
}
