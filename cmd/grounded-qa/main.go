// Package main is the entry point for the grounded-qa CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/upb/grounded-qa/app"
	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/internal/observability"
	"go.uber.org/zap"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the grounded-qa CLI.
var rootCmd = &cobra.Command{
	Use:   "grounded-qa",
	Short: "Answer questions from a book without leaving it",
	Long: `grounded-qa answers questions using only the text of an indexed book, or
only a passage the reader selected. Questions the book cannot answer are
refused instead of guessed.

Settings come from the environment (and an optional .env file). A YAML config
file may set the same keys in lower case, e.g. "vector_backend: memory".
Command flags override both.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./grounded-qa.yaml or ~/.config/grounded-qa/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("cli.env_file", rootCmd.PersistentFlags().Lookup("env-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("grounded-qa")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "grounded-qa"))
		}
	}

	viper.SetEnvPrefix("GQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// exportSettings copies config-file keys and changed flags into the process
// environment so config.Load sees them. Variables already in the environment
// win over the config file; flags win over everything. Dotted keys are CLI
// options and are not exported.
func exportSettings(cmd *cobra.Command) {
	for _, key := range viper.AllKeys() {
		if strings.Contains(key, ".") {
			continue
		}
		env := strings.ToUpper(key)

		if flag := cmd.Flags().Lookup(strings.ReplaceAll(key, "_", "-")); flag != nil && flag.Changed {
			_ = os.Setenv(env, flag.Value.String())
			continue
		}
		if !viper.InConfig(key) {
			continue
		}
		if _, exists := os.LookupEnv(env); exists {
			continue
		}
		if value := settingString(viper.Get(key)); value != "" {
			_ = os.Setenv(env, value)
		}
	}
}

func settingString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}

// loadConfig resolves settings for cmd and validates them
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	exportSettings(cmd)
	cfg, err := config.Load(cmd.Context(), viper.GetString("cli.env_file"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// bootstrap loads config, builds the logger and wires every dependency
func bootstrap(cmd *cobra.Command) (*app.Dependencies, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting grounded-qa",
		zap.String("version", version),
		zap.String("command", cmd.Name()),
		zap.String("environment", cfg.Environment))

	deps, err := app.NewDependencies(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}
	return deps, nil
}

// shutdown closes dependencies within the configured shutdown timeout
func shutdown(deps *app.Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := deps.Close(ctx); err != nil {
		deps.Logger.Error("error closing dependencies", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
