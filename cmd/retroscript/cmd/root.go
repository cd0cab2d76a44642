package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/morroware/retroscript/pkg/config"
	"github.com/morroware/retroscript/pkg/engine"
	"github.com/morroware/retroscript/pkg/logger"
)

var (
	cfgFile   string
	logLevel  string
	timeoutMS int64
)

var rootCmd = &cobra.Command{
	Use:   "retroscript",
	Short: "RetroScript interpreter",
	Long: `retroscript parses and executes RetroScript files: a small
scripting language with dynamic-scope functions, try/catch, and an
async command dispatch layer for side effects.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Int64Var(&timeoutMS, "timeout", -1, "script timeout in milliseconds (0 = unlimited)")
}

// loadConfig merges the config file with command-line overrides and
// initializes logging.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if timeoutMS >= 0 {
		cfg.ScriptTimeoutMS = timeoutMS
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newEngine builds an engine from the effective configuration.
func newEngine() (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(engine.WithConfig(cfg)), nil
}

// report converts a failed run into an error so the process exit code
// reflects it.
func report(res engine.Result) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Error)
}
