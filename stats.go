package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show token store classification counts",
		Long: `Display how many stored user tokens are valid, inside the refresh
window, or expired. Reading stats never modifies the store.`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}
}

func runStats(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	st := store.Stats()

	if flagJSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(st)
	}

	fmt.Printf("Total:         %d\n", st.Total)
	fmt.Printf("Valid:         %d\n", st.Valid)
	fmt.Printf("Needs refresh: %d\n", st.NeedsRefresh)
	fmt.Printf("Expired:       %d\n", st.Expired)

	return nil
}
