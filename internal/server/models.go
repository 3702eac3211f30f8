package server

import "github.com/mohammad-safakhou/carie/internal/agent/react"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AskRequest carries one task for the assistant.
type AskRequest struct {
	Task string `json:"task"`
}

// AskResponse is the outcome of a run, including the full field trace.
type AskResponse struct {
	RunID  string        `json:"run_id"`
	Status react.Status  `json:"status"`
	Result string        `json:"result"`
	Hops   int           `json:"hops"`
	Trace  []react.Entry `json:"trace"`
}

// PlanResponse describes the compiled plan.
type PlanResponse struct {
	Instructions string        `json:"instructions"`
	Fingerprint  string        `json:"fingerprint"`
	MaxHops      int           `json:"max_hops"`
	Capabilities []string      `json:"capabilities"`
	Depths       []DepthFields `json:"depths"`
}

// DepthFields lists the ordered field names of the schema for one depth.
type DepthFields struct {
	Depth  int      `json:"depth"`
	Fields []string `json:"fields"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}
