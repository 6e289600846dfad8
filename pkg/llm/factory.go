package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider names accepted in configuration.
const (
	ProviderAuto      = "auto"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ResolveProvider maps a configured provider to a concrete one. "auto" (or
// empty) picks anthropic when the endpoint names it and openai otherwise,
// since most self-hosted gateways speak the OpenAI protocol.
func ResolveProvider(provider, endpoint string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case ProviderOpenAI, ProviderAnthropic:
		return p, nil
	case "", ProviderAuto:
		if strings.Contains(strings.ToLower(endpoint), "anthropic") {
			return ProviderAnthropic, nil
		}
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unknown llm provider %q", provider)
	}
}

// NewProviderClient builds the provider client selected by cfg.
func NewProviderClient(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	provider, err := ResolveProvider(cfg.Provider, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if provider == ProviderAnthropic {
		return NewAnthropicClient(cfg, logger)
	}
	return NewClient(cfg, logger)
}

// NewGuardedFromConfig builds the provider client and wraps it.
func NewGuardedFromConfig(cfg *Config, guard GuardedConfig, logger *zap.Logger) (*GuardedClient, error) {
	inner, err := NewProviderClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	if guard.Timeout <= 0 {
		guard.Timeout = cfg.Timeout
	}
	return NewGuardedClient(inner, guard, logger)
}
