package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/types"
)

// ResolverConfig configures capability resolution for one remote endpoint.
type ResolverConfig struct {
	// BaseURL is the remote agent's base URL.
	BaseURL string `yaml:"base_url"`
	// CardPath overrides the well-known card path. Some deployments serve
	// their descriptor elsewhere (e.g. /agenta2a/v1/card).
	CardPath string `yaml:"card_path"`
	// RetryCount bounds re-resolution attempts after a failed fetch.
	RetryCount int `yaml:"retry_count"`
	// RetryDelay is the delay between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultResolverConfig returns a ResolverConfig with sensible defaults.
func DefaultResolverConfig(baseURL string) ResolverConfig {
	return ResolverConfig{
		BaseURL:    baseURL,
		CardPath:   WellKnownCardPath,
		RetryCount: 3,
		RetryDelay: time.Second,
	}
}

// Resolver fetches and caches a remote agent's capability descriptor.
// Resolution happens once per endpoint: a successful card is cached for the
// resolver's lifetime, a failed fetch is retried up to the configured bound
// and then reported as AGENT_UNREACHABLE.
type Resolver struct {
	config     ResolverConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu   sync.Mutex
	card *AgentCard
}

// NewResolver creates a resolver for one remote endpoint.
func NewResolver(config ResolverConfig, httpClient *http.Client, logger *zap.Logger) *Resolver {
	if config.CardPath == "" {
		config.CardPath = WellKnownCardPath
	}
	if config.RetryCount < 0 {
		config.RetryCount = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		config:     config,
		httpClient: httpClient,
		logger:     logger.With(zap.String("component", "a2a_resolver"), zap.String("endpoint", config.BaseURL)),
	}
}

// Resolve returns the remote agent's card, fetching it on first use.
func (r *Resolver) Resolve(ctx context.Context) (*AgentCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.card != nil {
		return r.card, nil
	}

	cardURL := r.config.BaseURL + r.config.CardPath

	var lastErr error
	for attempt := 0; attempt <= r.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, types.NewError(types.ErrAgentUnreachable, "card resolution cancelled").WithCause(ctx.Err())
			case <-time.After(r.config.RetryDelay):
			}
		}

		card, err := r.fetch(ctx, cardURL)
		if err == nil {
			r.logger.Info("agent card resolved",
				zap.String("agent", card.Name),
				zap.String("version", card.Version),
			)
			r.card = card
			return card, nil
		}
		lastErr = err
		r.logger.Warn("agent card fetch failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, types.NewError(types.ErrAgentUnreachable,
		fmt.Sprintf("could not resolve agent card at %s after %d attempts", cardURL, r.config.RetryCount+1)).
		WithCause(lastErr)
}

func (r *Resolver) fetch(ctx context.Context, cardURL string) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build card request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch card: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read card body: %w", err)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("parse card: %w", err)
	}
	if card.URL == "" {
		card.URL = r.config.BaseURL
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return &card, nil
}
