package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nao1215/taxlookup/internal/config"
	tlog "github.com/nao1215/taxlookup/internal/log"
)

// envFile is loaded into the environment before configuration is read.
const envFile = ".env"

// NewRootCmd creates the root command for taxlookup.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxlookup",
		Short: "Look up Vietnamese companies on the business registry",
		Long: `taxlookup resolves a Vietnamese tax code (mã số thuế) or company name
into a structured company record by browsing the public registry site.

Each lookup makes up to three attempts, each through a different proxy
and with a different browser fingerprint, and records a diagnostic trail.

Configuration is read from defaults, the .taxlookup file, TAXLOOKUP_*
environment variables (a .env file in the working directory is loaded
first) and command-line flags, in increasing order of precedence.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(envFile)
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .taxlookup in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewLookupCmd())
	cmd.AddCommand(NewRateLimitCmd())
	cmd.AddCommand(NewProxiesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile loads path into the environment. A missing file is not an
// error; variables already set win over the file.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the process logger. Credentials in attributes and
// proxy URLs are masked by the secure handler.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	format, _ := cmd.Flags().GetString("log-format")
	if format == "json" {
		return tlog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return tlog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// loadConfig builds the configuration from defaults, the config file and
// the environment. Commands apply their own flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly named config file must exist; the default locations
	// are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := config.ApplyEnv(cmd.Context(), cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}
