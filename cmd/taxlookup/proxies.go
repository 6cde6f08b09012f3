package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/taxlookup/internal/proxy"
)

// NewProxiesCmd creates the proxies command group.
func NewProxiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxies",
		Short: "Manage the proxy list",
	}
	cmd.AddCommand(newProxiesCheckCmd())
	return cmd
}

func newProxiesCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every proxy endpoint accepts TCP connections",
		Long: `Check dials every endpoint of the proxy file and reports which ones are
reachable. It does not send a request through the proxy.

Examples:
  taxlookup proxies check
  taxlookup proxies check -p my-proxies.txt --timeout 3s`,
		Args: cobra.NoArgs,
		RunE: runProxiesCheckCmd,
	}

	cmd.Flags().StringP("proxies", "p", "", "Proxy list file (default from configuration)")
	cmd.Flags().DurationP("timeout", "t", 5*time.Second, "Connect timeout per endpoint")
	cmd.Flags().Int("concurrency", 8, "Number of endpoints checked at once")
	return cmd
}

// runProxiesCheckCmd executes the proxies check command.
func runProxiesCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("proxies"); path != "" {
		cfg.ProxyFile = path
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	pool, err := proxy.LoadFile(cfg.ProxyFile)
	if err != nil {
		return fmt.Errorf("failed to load proxies: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking %d proxy(ies) from %s...\n\n", pool.Len(), pool.Source())

	reachable := 0
	for _, res := range pool.Check(cmd.Context(), timeout, concurrency) {
		if res.Reachable() {
			reachable++
			fmt.Fprintf(out, "  [OK]   %s (%s)\n", proxy.Redact(res.Endpoint), res.Latency.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(out, "  [FAIL] %s: %v\n", proxy.Redact(res.Endpoint), res.Err)
	}

	fmt.Fprintf(out, "\n%d of %d reachable\n", reachable, pool.Len())
	if reachable == 0 {
		return fmt.Errorf("%w: none of the endpoints in %s is reachable", proxy.ErrNoProxies, pool.Source())
	}
	return nil
}
