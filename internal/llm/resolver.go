package llm

import (
	"log/slog"
	"strings"
	"sync"
)

// DefaultBaseURL is the hosted provider root used when no override is set.
const DefaultBaseURL = "https://api.openai.com"

// ClientConfig is the resolved provider credential and endpoint.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// Resolver lazily builds the process-wide Completer exactly once.
// An unconfigured credential resolves to nil, and that outcome is cached too.
type Resolver struct {
	cfg     ClientConfig
	model   string
	factory func(ClientConfig, string) Completer

	once   sync.Once
	client Completer
}

// NewResolver creates a Resolver from already-loaded configuration.
func NewResolver(cfg ClientConfig, model string) *Resolver {
	return &Resolver{
		cfg:   cfg,
		model: model,
		factory: func(c ClientConfig, m string) Completer {
			return NewOpenAI(c, m)
		},
	}
}

// NewStaticResolver returns a Resolver that always yields the given Completer.
// A nil Completer behaves like a missing credential.
func NewStaticResolver(c Completer) *Resolver {
	r := &Resolver{client: c}
	r.once.Do(func() {})
	return r
}

// Resolve returns the Completer, or nil when no credential is configured.
func (r *Resolver) Resolve() Completer {
	r.once.Do(func() {
		apiKey := strings.TrimSpace(r.cfg.APIKey)
		if apiKey == "" {
			slog.Warn("OPENAI_API_KEY not configured, title generation and moderation disabled",
				"component", "llm",
			)
			return
		}
		baseURL := strings.TrimSpace(r.cfg.BaseURL)
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}
		r.client = r.factory(ClientConfig{APIKey: apiKey, BaseURL: baseURL}, r.model)
	})
	return r.client
}

// Configured reports whether Resolve yields a usable Completer.
func (r *Resolver) Configured() bool {
	return r.Resolve() != nil
}

// ModelName returns the configured model, or "" when unconfigured.
func (r *Resolver) ModelName() string {
	if c := r.Resolve(); c != nil {
		return c.ModelName()
	}
	return ""
}
