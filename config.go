// Package moneymanager is the library entry point: it re-exports the
// configuration API and builds a ready-to-use advisor session.
package moneymanager

import (
	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/utils"
)

type (
	// Config is the explicit process configuration. See config.Config.
	//
	// Example usage:
	//   cfg := NewConfig()
	//   ApplyOptions(cfg, SetProvider("openai"), SetAPIKey(key))
	Config = config.Config

	ConfigOption = config.ConfigOption

	LogLevel = utils.LogLevel
)

var (
	// LoadConfig reads the process environment overlaid on optional dotenv
	// files. API keys are discovered from *_API_KEY variables.
	LoadConfig   = config.LoadConfig
	ApplyOptions = config.ApplyOptions
	NewConfig    = config.NewConfig
)

var (
	// Provider configuration
	SetProvider = config.SetProvider // Sets the completion provider (openai, openai-chat, ollama)
	SetModel    = config.SetModel
	SetEndpoint = config.SetEndpoint // Overrides the provider base URL
	SetAPIKey   = config.SetAPIKey   // Sets the API key for the current provider

	// Generation parameters
	SetTemperature = config.SetTemperature // Sampling temperature (0.0-1.0)
	SetMaxTokens   = config.SetMaxTokens

	// Runtime configuration
	SetTimeout           = config.SetTimeout
	SetRequestsPerMinute = config.SetRequestsPerMinute // Client-side pacing, 0 disables
	SetLogLevel          = config.SetLogLevel
	SetLogger            = config.SetLogger
	SetExtraHeaders      = config.SetExtraHeaders

	// Application settings
	SetPromptsFile  = config.SetPromptsFile
	SetThreadEntity = config.SetThreadEntity
	SetAddr         = config.SetAddr
)

const (
	LogLevelOff   = utils.LogLevelOff
	LogLevelError = utils.LogLevelError
	LogLevelWarn  = utils.LogLevelWarn
	LogLevelInfo  = utils.LogLevelInfo
	LogLevelDebug = utils.LogLevelDebug
)
