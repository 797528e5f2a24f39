package calculator

import "go-chi-accumulator/internal/session"

// CalcRequest is the JSON body for binary operations (add, subtract, multiply, divide).
type CalcRequest struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// CalcResponse is the JSON response for the binary operation endpoints.
type CalcResponse struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Result    float64 `json:"result"`
	// Entry is the rendered computation, e.g. "2 + 3 = 5".
	Entry string `json:"entry"`
}

// ChainStep describes a single step in a chained calculation.
type ChainStep struct {
	Op    string  `json:"op"`    // "add", "subtract", "multiply", "divide"
	Value float64 `json:"value"` // the operand applied with the running total
}

// ChainRequest is the JSON body for POST /calculator/chain.
type ChainRequest struct {
	Initial float64     `json:"initial"` // starting value
	Steps   []ChainStep `json:"steps"`
}

// ChainResponse is the JSON response for POST /calculator/chain.
type ChainResponse struct {
	Initial float64       `json:"initial"`
	Steps   []ChainResult `json:"steps"`
	Result  float64       `json:"result"`
	History []string      `json:"history"`
}

// ChainResult records one executed step.
type ChainResult struct {
	Op     string  `json:"op"`
	Value  float64 `json:"value"`
	Result float64 `json:"result"`
}

// TokenRequest is the JSON body for POST /calculator/sessions/{id}/tokens.
type TokenRequest struct {
	Token string `json:"token"`
}

// ReplayRequest is the JSON body for POST /calculator/sessions/{id}/replay.
// Entry takes precedence over Index when both are set.
type ReplayRequest struct {
	Entry *string `json:"entry,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// SessionResponse is the JSON view of a calculator session.
type SessionResponse struct {
	ID      string   `json:"id"`
	Display string   `json:"display"`
	History []string `json:"history"`
	Pending string   `json:"pending,omitempty"`
}

func newSessionResponse(s session.Snapshot) SessionResponse {
	history := s.History
	if history == nil {
		history = []string{}
	}
	return SessionResponse{
		ID:      s.ID,
		Display: s.Display,
		History: history,
		Pending: s.Pending,
	}
}
