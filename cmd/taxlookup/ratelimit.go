package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/taxlookup/internal/config"
)

// NewRateLimitCmd creates the ratelimit command group.
func NewRateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Inspect and maintain the per-client rate limit",
		Long: `Ratelimit works on the sliding-window store used by lookup --client-ip.

The store and its location come from the ratelimit section of the
configuration file or TAXLOOKUP_RATELIMIT_* environment variables.`,
	}

	cmd.PersistentFlags().String("store", "", "Window store: file or sqlite (default from configuration)")
	cmd.PersistentFlags().String("dir", "", "Window store directory (default from configuration)")

	cmd.AddCommand(newRateLimitCheckCmd())
	cmd.AddCommand(newRateLimitCleanupCmd())
	return cmd
}

func newRateLimitCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <ip>",
		Short: "Count one request from ip and print the window state",
		Long: `Check counts one request from the given client IP, exactly like a lookup
would, and prints whether it was allowed.

Examples:
  taxlookup ratelimit check 203.0.113.7`,
		Args: cobra.ExactArgs(1),
		RunE: runRateLimitCheckCmd,
	}
}

func newRateLimitCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete windows idle for longer than the window length",
		Args:  cobra.NoArgs,
		RunE:  runRateLimitCleanupCmd,
	}
}

// rateLimitConfig loads the configuration and applies the store flags.
func rateLimitConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if store, _ := cmd.Flags().GetString("store"); store != "" {
		cfg.RateLimit.Store = store
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.RateLimit.Dir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// runRateLimitCheckCmd executes the ratelimit check command.
func runRateLimitCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := rateLimitConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	limiter, store, err := openLimiter(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := limiter.Check(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "IP:          %s\n", res.IP)
	if res.Whitelisted {
		fmt.Fprintln(out, "Allowed:     yes (whitelisted)")
		return nil
	}
	if res.Allowed {
		fmt.Fprintln(out, "Allowed:     yes")
	} else {
		fmt.Fprintln(out, "Allowed:     no")
	}
	fmt.Fprintf(out, "Remaining:   %d of %d per %s\n", res.Remaining, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	fmt.Fprintf(out, "Reset:       %s\n", res.Reset.Format(time.RFC3339))
	if !res.Allowed {
		fmt.Fprintf(out, "Retry after: %s\n", res.RetryAfter)
	}
	return nil
}

// runRateLimitCleanupCmd executes the ratelimit cleanup command.
func runRateLimitCleanupCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := rateLimitConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	limiter, store, err := openLimiter(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := limiter.Cleanup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d idle window(s) from %s\n", n, cfg.RateLimit.Dir)
	return nil
}
