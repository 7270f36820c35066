package http

import "time"

// WelcomeMessage is served on GET /.
const WelcomeMessage = "Welcome to the Member Q&A API! Use /ask?question=Your+Question"

// Error codes returned in ErrorResponse.Error.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeNotReady         = "not_ready"
	CodeRetrievalFailed  = "retrieval_failed"
	CodeGenerationFailed = "generation_failed"
	CodeReindexBusy      = "reindex_in_progress"
	CodeInternal         = "internal_error"
)

// RootResponse is the response body for GET /.
type RootResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status      string     `json:"status"`
	Version     string     `json:"version,omitempty"`
	Members     int        `json:"members"`
	Messages    int        `json:"messages"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
}

// AskRequest is the request body for POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the response body for GET /ask. DetectedUser is null when
// no member was detected.
type AskResponse struct {
	Question     string   `json:"question"`
	DetectedUser *string  `json:"detected_user"`
	Answer       string   `json:"answer"`
	Confidence   string   `json:"confidence"`
	ContextUsed  []string `json:"context_used"`
}

// ContextMessage is one supporting message in AskDetailResponse.
type ContextMessage struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	UserName  string     `json:"user_name"`
	UserID    string     `json:"user_id"`
	Timestamp *time.Time `json:"timestamp"`
	Distance  float32    `json:"distance"`
}

// AskDetailResponse is the response body for POST /api/v1/ask.
type AskDetailResponse struct {
	Question     string           `json:"question"`
	DetectedUser *string          `json:"detected_user"`
	DetectTier   string           `json:"detect_tier"`
	Answer       string           `json:"answer"`
	Confidence   string           `json:"confidence"`
	Context      []ContextMessage `json:"context"`
}

// ReindexRequest is the request body for POST /api/v1/reindex.
type ReindexRequest struct {
	// Force refetches messages even when the cache is fresh.
	Force bool `json:"force"`
}

// ReindexResponse is the response body for POST /api/v1/reindex.
type ReindexResponse struct {
	Messages   int     `json:"messages"`
	Members    int     `json:"members"`
	Rebuilt    bool    `json:"rebuilt"`
	DurationMs float64 `json:"duration_ms"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
