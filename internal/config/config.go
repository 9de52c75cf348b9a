// Package config holds the process configuration for the auto-reply service.
// A single Config is built from the environment at startup and treated as
// read-only afterwards; components receive just the sub-struct they need.
//
// Resolution order, highest priority first:
//
//	OS environment -> .env file -> struct tag defaults
//
// Bad or missing values stop the process before it binds a port. There is no
// runtime reloading.
package config

import (
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// SecretString aliases types.SecretString so config consumers get redacted
// rendering without importing the types package for one name.
type SecretString = types.SecretString

// Config is everything the service can be told from outside. Fields without
// a validate tag are optional; defaults keep local development to three
// exported variables (APP_ENV plus the two API keys).
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"email-automation"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server     ServerConfig
	Instantly  InstantlyConfig
	Completion CompletionConfig
	Reply      ReplyConfig
	Security   SecurityConfig

	// Build comes from the linker, not the environment.
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`

	// RequestTimeout is the soft deadline applied to every request context.
	// Batch processing holds a request open across many rate-limited upstream
	// calls, so this defaults well above typical API timeouts.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"300s"`
}

// InstantlyConfig holds the campaign/inbox provider credentials and client
// tuning parameters.
type InstantlyConfig struct {
	APIKey SecretString `envconfig:"INSTANTLY_API_KEY" validate:"required"`

	// BaseURL may carry a trailing slash or an /api/v2 suffix; the client
	// normalizes it before use.
	BaseURL string `envconfig:"INSTANTLY_API_URL" default:"https://api.instantly.ai" validate:"required,url"`

	Timeout time.Duration `envconfig:"INSTANTLY_TIMEOUT" default:"30s"`

	// MinRequestInterval spaces successive provider calls to stay inside the
	// provider's rate limits. Zero disables spacing (tests).
	MinRequestInterval time.Duration `envconfig:"INSTANTLY_MIN_REQUEST_INTERVAL" default:"3s"`

	CampaignPageSize int `envconfig:"INSTANTLY_CAMPAIGN_PAGE_SIZE" default:"100" validate:"min=1,max=100"`
	UnreadFetchLimit int `envconfig:"INSTANTLY_UNREAD_FETCH_LIMIT" default:"50" validate:"min=1,max=100"`
	MaxRetries       int `envconfig:"INSTANTLY_MAX_RETRIES" default:"3" validate:"min=0,max=10"`
}

// CompletionConfig holds text-generation backend selection and credentials.
type CompletionConfig struct {
	// Provider selects the generation backend: "openai" calls the completion
	// API, "template" renders deterministic acknowledgment lines offline.
	Provider string `envconfig:"COMPLETION_PROVIDER" default:"openai" validate:"required,oneof=openai template"`

	// OpenAIAPIKey is required when Provider is "openai"; enforced by the
	// loader, not by a struct tag, because the template backend needs no key.
	OpenAIAPIKey types.SecretString `envconfig:"OPENAI_API_KEY"`

	// OpenAIBaseURL overrides the completion endpoint (tests, proxies).
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" validate:"omitempty,url"`

	Model       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	Temperature float64       `envconfig:"COMPLETION_TEMPERATURE" default:"0.7" validate:"min=0,max=2"`
	MaxTokens   int           `envconfig:"COMPLETION_MAX_TOKENS" default:"500" validate:"min=1"`
	Timeout     time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"30s"`
}

// ReplyConfig holds reply composition policy.
type ReplyConfig struct {
	CompanyName  string `envconfig:"COMPANY_NAME" default:"Riverline"`
	SupportEmail string `envconfig:"SUPPORT_EMAIL" default:"support@riverline.com" validate:"omitempty,email"`

	// MaxParallelDrafts bounds concurrent classify+compose work per batch.
	// Submission is always sequential regardless of this value.
	MaxParallelDrafts int `envconfig:"MAX_PARALLEL_DRAFTS" default:"4" validate:"min=1,max=32"`

	// IntentTablePath overrides the embedded intent catalog with a YAML file.
	// Empty means the compiled-in table is used.
	IntentTablePath string `envconfig:"INTENT_TABLE_PATH"`
}

// SecurityConfig holds CORS settings for the HTTP surface.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo identifies the running binary. See build.go for how the linker
// stamps these.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType names the phase of loading that failed.
type ConfigErrorType string

const (
	// ErrMissingCredential means the selected backend needs a credential
	// that was not provided.
	ErrMissingCredential ConfigErrorType = "MISSING_CREDENTIAL"
	// ErrValidation means the populated struct failed its validate tags.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing means an environment value could not be converted to its
	// field type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
