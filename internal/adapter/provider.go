package adapter

import (
	"context"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

// Engine defines the interface the framework and the HTTP layer use to talk to a backend.
// ChatEngine is the only implementation; handlers depend on this interface so they can be tested with fakes.
type Engine interface {
	// ID returns the capability name the framework resolves the engine by.
	ID() string

	// Prepare builds the provider payload from the request's prompt sources and
	// stores it in req.PreparedInput. It never fails.
	Prepare(req *domain.Request)

	// Forward sends the prepared payload and returns the answer. It never returns an error;
	// failures are reported as a Result whose metadata has Error set.
	Forward(ctx context.Context, req *domain.Request) domain.Result

	// Query runs Prepare followed by Forward.
	Query(ctx context.Context, req *domain.Request) domain.Result

	// Probe lists the models available at the configured endpoint.
	Probe(ctx context.Context) ([]string, error)

	// Info describes the configured backend.
	Info() EngineInfo
}

// EngineInfo is a read-only description of a configured engine. It never carries the API key.
type EngineInfo struct {
	ID          string            `json:"id"`
	Type        domain.EngineType `json:"type"`
	DisplayName string            `json:"display_name"`
	Model       string            `json:"model"`
	BaseURL     string            `json:"base_url"`
	MaxTokens   int               `json:"max_tokens"`
}
