package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/openlark/userauth/internal/tokenstore"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage stored user tokens",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersRemoveCmd())

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users with stored tokens",
		Args:  cobra.NoArgs,
		RunE:  runUsersList,
	}
}

func newUsersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <open-id>",
		Short: "Remove one user's stored token",
		Args:  cobra.ExactArgs(1),
		RunE:  runUsersRemove,
	}
}

// userRow is the display projection of one stored token. Secrets stay out
// of CLI output.
type userRow struct {
	OpenID               string `json:"openId"`
	Scope                string `json:"scope,omitempty"`
	AccessTokenExpiresAt string `json:"accessTokenExpiresAt"`
	State                string `json:"state"`
}

func runUsersList(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	rows := make([]userRow, 0)
	for _, tok := range store.List() {
		rows = append(rows, userRow{
			OpenID:               tok.OpenID,
			Scope:                tok.Scope,
			AccessTokenExpiresAt: tok.AccessTokenExpiresAt.Format("2006-01-02 15:04:05"),
			State:                classify(store, tok),
		})
	}

	if flagJSON || !isatty.IsTerminal(os.Stdout.Fd()) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No stored user tokens.")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%-32s %-14s expires %s\n", row.OpenID, row.State, row.AccessTokenExpiresAt)
	}

	return nil
}

func classify(store *tokenstore.Store, tok tokenstore.UserToken) string {
	switch {
	case !store.Has(tok.OpenID):
		return "expired"
	case store.NeedsRefresh(tok.OpenID):
		return "needs refresh"
	default:
		return "valid"
	}
}

func runUsersRemove(_ *cobra.Command, args []string) error {
	logger := buildLogger()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	openID := args[0]
	if !store.Has(openID) {
		return fmt.Errorf("no stored token for %s", openID)
	}

	store.Remove(openID)
	fmt.Printf("Removed token for %s\n", openID)

	return nil
}
