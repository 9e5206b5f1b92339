package dto

import (
	"time"

	"portfolio-agent-be/pkg/conversation"
	"portfolio-agent-be/pkg/prompt"
)

// ChatRequest is the decoded POST body. Fields stay untyped so malformed
// values degrade instead of failing the decode.
type ChatRequest struct {
	Messages       any `json:"messages"`
	Mode           any `json:"mode"`
	JobDescription any `json:"jobDescription"`
}

// ChatInput is a ChatRequest after normalization. The job_description tag
// is an alias registered by the chat service.
type ChatInput struct {
	Window         conversation.Window
	Mode           prompt.Mode
	JobDescription string `validate:"job_description"`
}

type ChatMeta struct {
	DurationMs    int64  `json:"durationMs"`
	Model         string `json:"model"`
	CommitSha     string `json:"commitSha"`
	DeploymentUrl string `json:"deploymentUrl"`
}

type ChatResponse struct {
	Reply     string   `json:"reply"`
	RequestID string   `json:"requestId"`
	Meta      ChatMeta `json:"meta"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
	Details   string `json:"details,omitempty"`
}

// ChatResult is what the service hands back to the controller.
type ChatResult struct {
	Reply string
	Model string
}

type HealthResponse struct {
	Status    string `json:"status"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	CommitSha string `json:"commitSha"`
}

// ChatCompletedEvent is published once per /api/chat request, whatever the
// outcome.
type ChatCompletedEvent struct {
	RequestID         string    `json:"request_id"`
	ClientKey         string    `json:"client_key"`
	Status            int       `json:"status"`
	Outcome           string    `json:"outcome"`
	Mode              string    `json:"mode,omitempty"`
	Messages          int       `json:"messages"`
	HasJobDescription bool      `json:"has_job_description"`
	Model             string    `json:"model,omitempty"`
	DurationMs        int64     `json:"duration_ms"`
	OccurredAt        time.Time `json:"occurred_at"`
}
