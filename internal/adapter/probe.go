package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ProbeTimeout bounds a connection test.
const ProbeTimeout = 5 * time.Second

// ProbeModels issues GET {baseURL}/models and returns the model IDs the endpoint reports.
// A nil client gets a fresh one with ProbeTimeout.
func ProbeModels(ctx context.Context, baseURL, apiKey string, client *http.Client) ([]string, error) {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: ProbeTimeout}
	}
	cfg.HTTPClient = client

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	list, err := openai.NewClientWithConfig(cfg).ListModels(ctx)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, &APIError{StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode)}
		}
		return nil, &TransportError{Err: err}
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Probe tests the engine's own endpoint, reusing its transport.
func (e *ChatEngine) Probe(ctx context.Context) ([]string, error) {
	client := &http.Client{
		Timeout:   ProbeTimeout,
		Transport: e.httpClient.Transport,
	}
	ids, err := ProbeModels(ctx, e.baseURL, e.apiKey, client)
	if err != nil {
		return nil, fmt.Errorf("%s connection test: %w", e.variant.DisplayName, err)
	}
	return ids, nil
}
