// File: config/config.go

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/guiperry/moneymanager/utils"
)

// Config is the explicit process configuration. Nothing in the module reads
// the process environment after LoadConfig returns.
type Config struct {
	Provider          string            `env:"LLM_PROVIDER" envDefault:"openai" validate:"required,oneof=openai openai-chat ollama"`
	Model             string            `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo-instruct" validate:"required"`
	Endpoint          string            `env:"LLM_ENDPOINT" validate:"omitempty,url"`
	Temperature       float64           `env:"LLM_TEMPERATURE" envDefault:"0.9" validate:"gte=0,lte=1"`
	MaxTokens         int               `env:"LLM_MAX_TOKENS" envDefault:"512" validate:"min=1"`
	Timeout           time.Duration     `env:"LLM_TIMEOUT" envDefault:"0s" validate:"gte=0"`
	RequestsPerMinute int               `env:"LLM_REQUESTS_PER_MINUTE" envDefault:"0" validate:"gte=0"`
	LogLevel          utils.LogLevel    `env:"LLM_LOG_LEVEL" envDefault:"WARN"`
	APIKeys           map[string]string `validate:"apikey"`
	ExtraHeaders      map[string]string
	App               AppConfig    `envPrefix:"MONEYMANAGER_"`
	Logger            utils.Logger `validate:"-"`
}

// AppConfig holds the MoneyManager-specific settings.
type AppConfig struct {
	PromptsFile  string `env:"PROMPTS"`
	ThreadEntity bool   `env:"THREAD_ENTITY" envDefault:"false"`
	Addr         string `env:"ADDR" envDefault:":8080" validate:"required"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("apikey", validateAPIKey, true); err != nil {
		panic(fmt.Sprintf("failed to register API key validator: %v", err))
	}
}

// validateAPIKey requires a key for the configured provider unless it is a
// local runtime that does not authenticate.
func validateAPIKey(fl validator.FieldLevel) bool {
	apiKeys, ok := fl.Field().Interface().(map[string]string)
	if !ok {
		return false
	}
	provider := fl.Parent().FieldByName("Provider").String()
	if provider == "ollama" {
		return true
	}
	return apiKeys[KeyName(provider)] != ""
}

// KeyName maps a provider to the APIKeys entry that authenticates it.
// Both OpenAI flavours share OPENAI_API_KEY.
func KeyName(provider string) string {
	if provider == "openai-chat" {
		return "openai"
	}
	return provider
}

// LoadConfig builds a Config from the process environment overlaid on the
// given dotenv files. Files are read, not sourced: os.Setenv is never called.
// A missing file is an error; pass no files to skip dotenv entirely.
func LoadConfig(envFiles ...string) (*Config, error) {
	environ := make(map[string]string)
	if len(envFiles) > 0 {
		fileVars, err := godotenv.Read(envFiles...)
		if err != nil {
			return nil, fmt.Errorf("read env files: %w", err)
		}
		for k, v := range fileVars {
			environ[k] = v
		}
	}
	for k, v := range env.ToMap(os.Environ()) {
		environ[k] = v
	}
	return LoadConfigFromMap(environ)
}

// LoadConfigFromMap parses a Config from an explicit variable set.
func LoadConfigFromMap(environ map[string]string) (*Config, error) {
	cfg := &Config{
		APIKeys:      make(map[string]string),
		ExtraHeaders: make(map[string]string),
	}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	loadAPIKeys(cfg, environ)
	return cfg, nil
}

func loadAPIKeys(cfg *Config, environ map[string]string) {
	for key, value := range environ {
		upper := strings.ToUpper(key)
		if value != "" && strings.HasSuffix(upper, "_API_KEY") {
			provider := strings.TrimSuffix(upper, "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}
}

// Validate checks the struct rules, including the provider credential.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	return c.APIKeys[KeyName(c.Provider)]
}

// GetLogger returns the configured logger, building a default one from LogLevel.
func (c *Config) GetLogger() utils.Logger {
	if c.Logger == nil {
		c.Logger = utils.NewLogger(c.LogLevel)
	}
	return c.Logger
}

type ConfigOption func(*Config)

// NewConfig returns the built-in defaults without consulting the environment.
func NewConfig() *Config {
	return &Config{
		Provider:     "openai",
		Model:        "gpt-3.5-turbo-instruct",
		Temperature:  0.9,
		MaxTokens:    512,
		APIKeys:      make(map[string]string),
		ExtraHeaders: make(map[string]string),
		LogLevel:     utils.LogLevelWarn,
		App: AppConfig{
			Addr: ":8080",
		},
	}
}

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetRequestsPerMinute(rpm int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerMinute = rpm
	}
}

// SetAPIKey stores the key for the current provider, so apply it after SetProvider.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[KeyName(c.Provider)] = apiKey
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
		if c.Logger != nil {
			c.Logger.SetLevel(level)
		}
	}
}

func SetLogger(logger utils.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func SetPromptsFile(path string) ConfigOption {
	return func(c *Config) {
		c.App.PromptsFile = path
	}
}

func SetThreadEntity(thread bool) ConfigOption {
	return func(c *Config) {
		c.App.ThreadEntity = thread
	}
}

func SetAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.App.Addr = addr
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}
