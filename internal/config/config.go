package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort int `mapstructure:"APP_PORT" validate:"min=1,max=65535"`

	ContextURL               string        `mapstructure:"CONTEXT_URL" validate:"required,url"`
	ContextTimeout           time.Duration `mapstructure:"CONTEXT_TIMEOUT" validate:"gt=0"`
	ContextFailurePolicy     string        `mapstructure:"CONTEXT_FAILURE_POLICY" validate:"oneof=fail degrade"`
	ContextFilterByDistance  bool          `mapstructure:"CONTEXT_FILTER_BY_DISTANCE"`
	ContextDistanceThreshold float64       `mapstructure:"CONTEXT_DISTANCE_THRESHOLD" validate:"gt=0"`

	LLMProvider   string `mapstructure:"LLM_PROVIDER" validate:"oneof=ollama openai"`
	OllamaURL     string `mapstructure:"OLLAMA_URL" validate:"required_if=LLMProvider ollama"`
	OllamaModel   string `mapstructure:"OLLAMA_MODEL" validate:"required_if=LLMProvider ollama"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY" validate:"required_if=LLMProvider openai"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL" validate:"omitempty,url"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL" validate:"required_if=LLMProvider openai"`

	RelayMode         string        `mapstructure:"RELAY_MODE" validate:"oneof=buffered streamed"`
	GenerationTimeout time.Duration `mapstructure:"GENERATION_TIMEOUT" validate:"gt=0"`
	Temperature       float64       `mapstructure:"TEMPERATURE" validate:"gte=0,lte=2"`
	TopP              float64       `mapstructure:"TOP_P" validate:"gte=0,lte=1"`
	TopK              int           `mapstructure:"TOP_K" validate:"gte=0"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFile       string `mapstructure:"LOG_FILE"`
	TurnLogPath   string `mapstructure:"TURN_LOG_PATH"`
	TraceExporter string `mapstructure:"TRACE_EXPORTER" validate:"omitempty,oneof=none stdout"`

	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	WaitForBackends    bool          `mapstructure:"WAIT_FOR_BACKENDS"`
	BackendWaitTimeout time.Duration `mapstructure:"BACKEND_WAIT_TIMEOUT" validate:"gt=0"`

	// Source is the config file that was read, empty when only the
	// environment and defaults were used.
	Source string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 3001)

	v.SetDefault("CONTEXT_URL", "http://localhost:8000/get_context")
	v.SetDefault("CONTEXT_TIMEOUT", "10s")
	v.SetDefault("CONTEXT_FAILURE_POLICY", "fail")
	v.SetDefault("CONTEXT_FILTER_BY_DISTANCE", true)
	v.SetDefault("CONTEXT_DISTANCE_THRESHOLD", 1.5)

	v.SetDefault("LLM_PROVIDER", "ollama")
	v.SetDefault("OLLAMA_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "gemma3:1b")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "")

	v.SetDefault("RELAY_MODE", "streamed")
	v.SetDefault("GENERATION_TIMEOUT", "2m")
	v.SetDefault("TEMPERATURE", 0.2)
	v.SetDefault("TOP_P", 0.9)
	v.SetDefault("TOP_K", 40)

	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("TURN_LOG_PATH", "")
	v.SetDefault("TRACE_EXPORTER", "")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("WAIT_FOR_BACKENDS", false)
	v.SetDefault("BACKEND_WAIT_TIMEOUT", "60s")
}

// LoadConfig reads an optional .env file from searchPaths (default "." and
// "./backend"), overlays the environment and validates the result.
func LoadConfig(searchPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./backend"}
	}
	v.SetConfigName(".env")
	v.SetConfigType("env")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	cfg.normalize()

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.ContextFailurePolicy = strings.ToLower(strings.TrimSpace(c.ContextFailurePolicy))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.RelayMode = strings.ToLower(strings.TrimSpace(c.RelayMode))
	c.TraceExporter = strings.ToLower(strings.TrimSpace(c.TraceExporter))

	origins := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
}
