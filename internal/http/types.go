package http

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Subject string `json:"subject"`
	Query   string `json:"query"`
	Module  string `json:"module,omitempty"`
}

// AddQARequest is the request body for POST /api/v1/admin/qa.
type AddQARequest struct {
	Module   string            `json:"module"`
	Question string            `json:"question"`
	Answer   string            `json:"answer"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StatusResponse is a generic success response body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
