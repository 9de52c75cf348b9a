// loader.go turns the process environment into a validated Config. A .env
// file is honored for local development, envconfig fills the struct, and the
// result is checked before anything binds a port. Failures come back as
// *ConfigError so main can log a typed reason and exit.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError carries a ConfigErrorType alongside the message so startup
// logs name the failing phase, not just the symptom.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "[" + string(e.Type) + "] " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// completionProviderOpenAI is the CompletionConfig.Provider value that calls
// the hosted completion API and therefore requires an API key.
const completionProviderOpenAI = "openai"

// LoadConfig builds the service configuration from the environment.
//
// The process timezone is pinned to UTC first, then a .env file is loaded if
// one exists (values already in the environment win). envconfig populates the
// struct, credentials are normalized, build metadata is attached, and the
// whole struct is validated. A non-nil error is fatal; the service must not
// serve traffic with a partial configuration.
func LoadConfig() (*Config, error) {
	// Timestamps in logs and provider payloads are all UTC.
	time.Local = time.UTC

	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	// The empty prefix makes envconfig read tag values verbatim, so
	// envconfig:"APP_ENV" means the APP_ENV variable itself.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	normalizeCredentials(&cfg)
	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := checkProviderCredentials(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalizeCredentials strips the quotes and whitespace that keys pasted from
// provider dashboards into .env files tend to carry. Those stray bytes would
// otherwise end up inside Authorization headers.
func normalizeCredentials(cfg *Config) {
	cfg.Instantly.APIKey = cfg.Instantly.APIKey.Trimmed()
	cfg.Completion.OpenAIAPIKey = cfg.Completion.OpenAIAPIKey.Trimmed()
}

// checkProviderCredentials enforces the requirement a struct tag cannot
// express: the openai completion backend needs a key, the template backend
// does not.
func checkProviderCredentials(cfg *Config) error {
	if cfg.Completion.Provider == completionProviderOpenAI && cfg.Completion.OpenAIAPIKey.IsZero() {
		return &ConfigError{
			Type:    ErrMissingCredential,
			Message: "OPENAI_API_KEY is required when COMPLETION_PROVIDER=openai",
		}
	}
	return nil
}
