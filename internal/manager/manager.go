// Package manager builds ready-to-use engines from an engine type and its settings file.
// The caller owns the returned engine; nothing is registered globally.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hpn/hpn-symai-bridge/internal/adapter"
	"github.com/hpn/hpn-symai-bridge/internal/config"
	"github.com/hpn/hpn-symai-bridge/internal/domain"
	"github.com/hpn/hpn-symai-bridge/internal/security"
)

// Report describes a finished setup. Probed is false when probing is disabled.
type Report struct {
	Settings domain.EngineSettings
	Variant  domain.Variant
	Probed   bool
	Models   []string
	ProbeErr error
}

// Manager sets up engines.
type Manager struct {
	logger     *slog.Logger
	httpClient *http.Client
	timeout    time.Duration
	maxTokens  int
	probe      bool
	verbose    bool
	stripper   *adapter.ReasoningStripper
	reporter   func(Report)
}

// Option is a functional option for configuring Manager.
type Option func(*Manager)

// WithLogger sets the logger handed to the manager and every engine it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHTTPClient sets the HTTP client used by built engines and by connection tests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithTimeout sets the completion timeout of built engines.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithMaxTokens overrides the per-backend max_tokens default.
func WithMaxTokens(n int) Option {
	return func(m *Manager) {
		m.maxTokens = n
	}
}

// WithProbe toggles the connection test run before an engine is handed out.
func WithProbe(probe bool) Option {
	return func(m *Manager) {
		m.probe = probe
	}
}

// WithVerbose enables payload logging on built engines.
func WithVerbose(verbose bool) Option {
	return func(m *Manager) {
		m.verbose = verbose
	}
}

// WithReasoningTags sets the delimiters of the reasoning blocks removed from answers.
func WithReasoningTags(openTag, closeTag string) Option {
	return func(m *Manager) {
		if openTag != "" && closeTag != "" {
			m.stripper = adapter.NewReasoningStripper(openTag, closeTag)
		}
	}
}

// WithReporter registers a callback invoked once per Setup, successful or not.
func WithReporter(fn func(Report)) Option {
	return func(m *Manager) {
		m.reporter = fn
	}
}

// New creates a Manager. Probing is on by default.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger: slog.Default(),
		probe:  true,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Types lists the supported engine types.
func (m *Manager) Types() []domain.EngineType {
	return domain.EngineTypes()
}

// Setup loads the settings of engineType from configPath (empty means the backend's
// default file), optionally tests the endpoint and returns a new engine.
// A failed connection test fails the setup.
func (m *Manager) Setup(ctx context.Context, engineType domain.EngineType, configPath string) (*adapter.ChatEngine, error) {
	variant, err := domain.LookupVariant(engineType)
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadEngineSettings(engineType, configPath)
	if err != nil {
		return nil, fmt.Errorf("setup %s engine: %w", engineType, err)
	}

	m.logger.Info("engine settings loaded",
		slog.String("engine", variant.ID),
		slog.String("base_url", settings.BaseURL),
		slog.String("model", settings.Model),
		slog.String("masked_key", security.MaskKey(settings.APIKey)),
	)

	engine, err := adapter.NewChatEngine(settings, m.engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("setup %s engine: %w", engineType, err)
	}

	report := Report{Settings: settings, Variant: variant}
	if m.probe {
		report.Probed = true
		report.Models, report.ProbeErr = engine.Probe(ctx)
	}
	if m.reporter != nil {
		m.reporter(report)
	}

	if report.ProbeErr != nil {
		m.logger.Error("engine connection test failed",
			slog.String("engine", variant.ID),
			slog.String("error", report.ProbeErr.Error()),
		)
		return nil, fmt.Errorf("setup %s engine: %w", engineType, report.ProbeErr)
	}

	m.logger.Info("engine ready",
		slog.String("engine", variant.ID),
		slog.String("capability", engine.ID()),
		slog.Int("models", len(report.Models)),
	)
	return engine, nil
}

// TestConnection probes an endpoint without building an engine. An empty baseURL uses
// the backend default, an empty apiKey the backend's default key.
func (m *Manager) TestConnection(ctx context.Context, engineType domain.EngineType, baseURL, apiKey string) ([]string, error) {
	variant, err := domain.LookupVariant(engineType)
	if err != nil {
		return nil, err
	}

	if baseURL == "" {
		baseURL = variant.DefaultBaseURL
	}
	if apiKey == "" {
		apiKey = variant.DefaultAPIKey
	}

	var client *http.Client
	if m.httpClient != nil {
		client = &http.Client{Timeout: adapter.ProbeTimeout, Transport: m.httpClient.Transport}
	}

	models, err := adapter.ProbeModels(ctx, baseURL, apiKey, client)
	if err != nil {
		return nil, fmt.Errorf("%s connection test: %w", variant.DisplayName, err)
	}
	return models, nil
}

func (m *Manager) engineOptions() []adapter.EngineOption {
	opts := []adapter.EngineOption{
		adapter.WithLogger(m.logger),
		adapter.WithVerbose(m.verbose),
	}
	if m.httpClient != nil {
		opts = append(opts, adapter.WithHTTPClient(m.httpClient))
	}
	if m.timeout > 0 {
		opts = append(opts, adapter.WithTimeout(m.timeout))
	}
	if m.maxTokens > 0 {
		opts = append(opts, adapter.WithMaxTokens(m.maxTokens))
	}
	if m.stripper != nil {
		opts = append(opts, adapter.WithStripper(m.stripper))
	}
	return opts
}
