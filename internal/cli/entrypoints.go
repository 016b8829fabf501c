package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/userop/internal/infra/bundler"
)

var entryPointsChain string

var entryPointsCmd = &cobra.Command{
	Use:   "entrypoints",
	Short: "Show the entry points a chain's bundler supports",
	RunE:  runEntryPoints,
}

func init() {
	entryPointsCmd.Flags().StringVar(&entryPointsChain, "chain", "", "chain name or id (default: local sepolia)")
	rootCmd.AddCommand(entryPointsCmd)
}

func runEntryPoints(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	chain, err := resolveChain(cfg, entryPointsChain)
	if err != nil {
		return err
	}
	modules, err := cfg.SmartclientModules()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := bundler.Dial(chain.Bundler, cfg.RPC.Timeout, cfg.RPC.RetryConfig())
	defer func() { _ = client.Close() }()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return err
	}
	if chainID.Uint64() != uint64(chain.ID) {
		return fmt.Errorf("bundler serves chain %s, configured %s", chainID, chain.ID)
	}
	eps, err := client.SupportedEntryPoints(ctx)
	if err != nil {
		return err
	}

	w := newTable(os.Stdout)
	_, _ = fmt.Fprintln(w, "ENTRY POINT\tIN USE")
	for _, ep := range eps {
		inUse := ""
		if ep == modules.EntryPoint {
			inUse = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", ep.Hex(), inUse)
	}
	return w.Flush()
}
