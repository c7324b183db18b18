// Package cli implements the moneymanager commands.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guiperry/moneymanager/advisor"
	"github.com/guiperry/moneymanager/config"
	"github.com/guiperry/moneymanager/utils"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

type rootOptions struct {
	envFiles     []string
	logLevel     string
	promptsFile  string
	threadEntity bool
	provider     string
	model        string
	endpoint     string
	apiKey       string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "moneymanager",
		Short:         "A financial advisory chatbot",
		Long:          "MoneyManager asks a completion model for the best investments in a topic, advice among them, and the institutions that offer them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.bindFlags(cmd)

	cmd.AddCommand(
		newAskCmd(opts),
		newChatCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringArrayVar(&o.envFiles, "env-file", nil, "dotenv file to read settings and API keys from (repeatable)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level (off, error, warn, info, debug)")
	flags.StringVar(&o.promptsFile, "prompts", "", "YAML prompt catalogue overriding the built-in prompts")
	flags.BoolVar(&o.threadEntity, "thread-entity", false, "Feed the generated best investments into the advice prompt")
	flags.StringVar(&o.provider, "provider", "", "Completion provider (openai, openai-chat, ollama)")
	flags.StringVar(&o.model, "model", "", "Model name")
	flags.StringVar(&o.endpoint, "endpoint", "", "Provider base URL")
	flags.StringVar(&o.apiKey, "api-key", "", "API key for the selected provider")
	flags.Float64Var(&o.temperature, "temperature", 0, "Sampling temperature in [0, 1] (overrides LLM_TEMPERATURE)")
	flags.IntVar(&o.maxTokens, "max-tokens", 0, "Maximum tokens per completion (overrides LLM_MAX_TOKENS)")
	flags.DurationVar(&o.timeout, "timeout", 0, "Per-request timeout, 0 waits indefinitely (overrides LLM_TIMEOUT)")
}

// config loads the environment and dotenv files, then applies the flags the user set.
func (o *rootOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.envFiles...)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	var configOpts []config.ConfigOption
	if flags.Changed("provider") {
		configOpts = append(configOpts, config.SetProvider(o.provider))
	}
	if flags.Changed("model") {
		configOpts = append(configOpts, config.SetModel(o.model))
	}
	if flags.Changed("endpoint") {
		configOpts = append(configOpts, config.SetEndpoint(o.endpoint))
	}
	if flags.Changed("api-key") {
		configOpts = append(configOpts, config.SetAPIKey(o.apiKey))
	}
	if flags.Changed("temperature") {
		configOpts = append(configOpts, config.SetTemperature(o.temperature))
	}
	if flags.Changed("max-tokens") {
		configOpts = append(configOpts, config.SetMaxTokens(o.maxTokens))
	}
	if flags.Changed("timeout") {
		configOpts = append(configOpts, config.SetTimeout(o.timeout))
	}
	if flags.Changed("prompts") {
		configOpts = append(configOpts, config.SetPromptsFile(o.promptsFile))
	}
	if flags.Changed("thread-entity") {
		configOpts = append(configOpts, config.SetThreadEntity(o.threadEntity))
	}
	if flags.Changed("log-level") {
		level, err := utils.ParseLogLevel(o.logLevel)
		if err != nil {
			return nil, err
		}
		configOpts = append(configOpts, config.SetLogLevel(level))
	}
	config.ApplyOptions(cfg, configOpts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) advisor(cmd *cobra.Command) (*advisor.Advisor, *config.Config, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, nil, err
	}
	a, err := advisor.NewFromConfig(cfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create advisor: %w", err)
	}
	return a, cfg, nil
}
