package chi

// ErrorCode is the machine-readable error class of a failed request.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeInvalidQuery         ErrorCode = "invalid_query"
	CodeNotFound             ErrorCode = "not_found"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeStoreUnavailable     ErrorCode = "store_unavailable"
	CodeInternal             ErrorCode = "internal_error"
)

type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type recommendRequest struct {
	Query    string `json:"query"`
	City     string `json:"city"`
	Category string `json:"category"`
	TopK     *int   `json:"top_k,omitempty"`
}

type recommendResult struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type recommendResponse struct {
	Results []recommendResult `json:"results"`
}

type affinityResponse struct {
	Persona    string  `json:"persona"`
	Weight     float64 `json:"weight"`
	Normalized float64 `json:"normalized"`
	Tier       string  `json:"tier"`
}

type venueResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	URL          string             `json:"url"`
	City         string             `json:"city"`
	Category     string             `json:"category"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	Categories   []string           `json:"categories,omitempty"`
	Features     []string           `json:"features,omitempty"`
	Summary      string             `json:"summary,omitempty"`
	Personas     []affinityResponse `json:"personas"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
