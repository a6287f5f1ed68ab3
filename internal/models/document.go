package models

// Document is a knowledge-store entry: a canonical question, its answer,
// and the embedding of the question computed at ingest time. Immutable
// after creation except via explicit deletion by id.
type Document struct {
	ID        string    `json:"id"` // UUID
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// DocumentMatch is one similarity-search hit. Score is cosine similarity
// as reported by the backing index; higher is more similar.
type DocumentMatch struct {
	ID     string  `json:"id"`
	Query  string  `json:"query"`
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Evidence is the transient result of one retrieval call: the ranked
// matches, or the fallback notice when retrieval could not be served.
// Never persisted; consumed only within the invocation that produced it.
type Evidence struct {
	Matches  []DocumentMatch `json:"matches,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
}
