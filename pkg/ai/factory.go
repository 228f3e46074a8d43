package ai

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Settings selects and configures a judge implementation.
type Settings struct {
	Provider         string
	Model            string
	PassThreshold    float64
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	Logger           zerolog.Logger
}

// NewJudge returns the judge named by settings.Provider. A model provider
// without an API key degrades to the fallback judge with a warning.
func NewJudge(settings Settings) (Judge, error) {
	provider := strings.ToLower(strings.TrimSpace(settings.Provider))
	if key, ok := providerKey(provider, settings); ok && strings.TrimSpace(key) == "" {
		settings.Logger.Warn().Str("provider", provider).Msg("judge api key missing, using fallback judge")
		return NewFallbackJudge(), nil
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIJudge(OpenAIConfig{
			APIKey:        settings.OpenAIAPIKey,
			BaseURL:       settings.OpenAIBaseURL,
			Model:         settings.Model,
			PassThreshold: settings.PassThreshold,
			Logger:        settings.Logger,
		})
	case ProviderAnthropic:
		return NewAnthropicJudge(AnthropicConfig{
			APIKey:        settings.AnthropicAPIKey,
			BaseURL:       settings.AnthropicBaseURL,
			Model:         settings.Model,
			PassThreshold: settings.PassThreshold,
			Logger:        settings.Logger,
		})
	case ProviderFallback, "":
		return NewFallbackJudge(), nil
	default:
		return nil, fmt.Errorf("unknown judge provider %q", settings.Provider)
	}
}

func providerKey(provider string, settings Settings) (string, bool) {
	switch provider {
	case ProviderOpenAI:
		return settings.OpenAIAPIKey, true
	case ProviderAnthropic:
		return settings.AnthropicAPIKey, true
	}
	return "", false
}
