package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service and CLI.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	LogLevel               string
	RoutingLogDir          string
	ResponseLogDir         string
	ResultsDir             string
	ResultsMode            string
	ResultsSink            string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventsChannel          string
	JudgeProvider          string
	JudgeModel             string
	JudgeConcurrency       int
	JudgeTimeout           time.Duration
	JudgePassThreshold     float64
	OpenAIAPIKey           string
	OpenAIBaseURL          string
	AnthropicAPIKey        string
	AnthropicBaseURL       string
	WebhookTimeout         time.Duration
	JobWorkers             int
	JobQueueSize           int
	JobStateTTL            time.Duration
	SubmitRateLimit        int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Eval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("logs.routing_dir", "logs/orchestrator")
	v.SetDefault("logs.response_dir", "logs/openai_agent")
	v.SetDefault("results.dir", ".")
	v.SetDefault("results.mode", "append")
	v.SetDefault("results.sink", "csv")
	v.SetDefault("events.channel", "gema:eval")
	v.SetDefault("judge.provider", "openai")
	v.SetDefault("judge.concurrency", 4)
	v.SetDefault("judge.timeout", "60s")
	v.SetDefault("judge.pass_threshold", 3.0)
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_size", 32)
	v.SetDefault("jobs.state_ttl", "24h")
	v.SetDefault("submit.rate_limit", 30)
	v.SetDefault("cloudinary.folder", "gema/eval")

	judgeTimeout, err := parseDuration(v, "judge.timeout")
	if err != nil {
		return Config{}, err
	}
	webhookTimeout, err := parseDuration(v, "webhook.timeout")
	if err != nil {
		return Config{}, err
	}
	stateTTL, err := parseDuration(v, "jobs.state_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		RoutingLogDir:          v.GetString("logs.routing_dir"),
		ResponseLogDir:         v.GetString("logs.response_dir"),
		ResultsDir:             v.GetString("results.dir"),
		ResultsMode:            strings.ToLower(v.GetString("results.mode")),
		ResultsSink:            strings.ToLower(v.GetString("results.sink")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventsChannel:          v.GetString("events.channel"),
		JudgeProvider:          strings.ToLower(v.GetString("judge.provider")),
		JudgeModel:             v.GetString("judge.model"),
		JudgeConcurrency:       v.GetInt("judge.concurrency"),
		JudgeTimeout:           judgeTimeout,
		JudgePassThreshold:     v.GetFloat64("judge.pass_threshold"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIBaseURL:          v.GetString("openai_base_url"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
		AnthropicBaseURL:       v.GetString("anthropic_base_url"),
		WebhookTimeout:         webhookTimeout,
		JobWorkers:             v.GetInt("jobs.workers"),
		JobQueueSize:           v.GetInt("jobs.queue_size"),
		JobStateTTL:            stateTTL,
		SubmitRateLimit:        v.GetInt("submit.rate_limit"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ResultsMode {
	case "append", "overwrite", "unique":
	default:
		return fmt.Errorf("invalid results mode %q", c.ResultsMode)
	}

	switch c.ResultsSink {
	case "csv":
	case "database":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database url must be provided for the database sink")
		}
	default:
		return fmt.Errorf("invalid results sink %q", c.ResultsSink)
	}

	switch c.JudgeProvider {
	case "openai", "anthropic", "fallback":
	default:
		return fmt.Errorf("invalid judge provider %q", c.JudgeProvider)
	}

	if c.JudgeConcurrency <= 0 {
		c.JudgeConcurrency = 1
	}
	if c.JobWorkers <= 0 {
		c.JobWorkers = 1
	}
	if c.JobQueueSize <= 0 {
		c.JobQueueSize = 1
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
