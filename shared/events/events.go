// Package events defines the lifecycle messages emitted for every request.
// They are relayed to WebSocket clients and, when a broker is configured,
// published on RabbitMQ.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ── Routing keys (RabbitMQ topic exchange: codeforge.events) ─────────────────
const (
	CodegenStarted   = "codegen.started"
	CodegenFragment  = "codegen.fragment"
	CodegenComplete  = "codegen.complete"
	CodegenFailed    = "codegen.failed"
	AnalysisStarted  = "analysis.started"
	AnalysisComplete = "analysis.complete"
	AnalysisFailed   = "analysis.failed"
)

// ── Envelope wraps every message ─────────────────────────────────────────────

type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	Timestamp  time.Time       `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func Wrap(routingKey string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.New().String(),
		RoutingKey: routingKey,
		Timestamp:  time.Now(),
		Payload:    p,
	})
}

func Unwrap[T any](raw []byte) (*T, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var t T
	return &t, json.Unmarshal(env.Payload, &t)
}

func UnwrapEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	return &env, json.Unmarshal(raw, &env)
}

// ── Payload types ─────────────────────────────────────────────────────────────

type CodegenStartedPayload struct {
	RequestID string `json:"request_id"`
	Language  string `json:"language"`
	Model     string `json:"model"`
	Provider  string `json:"provider"`
}

type CodegenFragmentPayload struct {
	RequestID string `json:"request_id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	Inside    bool   `json:"inside"`
}

type CodegenCompletePayload struct {
	RequestID  string `json:"request_id"`
	Language   string `json:"language"`
	Fragments  int    `json:"fragments"`
	Fences     int    `json:"fences"`
	CodeLength int    `json:"code_length"`
	Partial    bool   `json:"partial"`
	DurationMS int64  `json:"duration_ms"`
}

type AnalysisStartedPayload struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Provider  string `json:"provider"`
}

type AnalysisCompletePayload struct {
	RequestID  string `json:"request_id"`
	Length     int    `json:"length"`
	DurationMS int64  `json:"duration_ms"`
}

// FailedPayload is shared by codegen.failed and analysis.failed.
type FailedPayload struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}
