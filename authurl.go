package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlark/userauth/internal/oauth"
)

func newAuthURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth-url <open-id>",
		Short: "Print the authorize URL for a user",
		Long: `Generate the authorization URL a user must visit to grant access.
The user's open ID rides along as the OAuth state parameter so the callback
can associate the issued tokens with them.`,
		Args: cobra.ExactArgs(1),
		RunE: runAuthURL,
	}

	cmd.Flags().Bool("card", false, "emit the interactive auth card JSON instead of the bare URL")
	cmd.Flags().String("locale", "en", "card locale (e.g. en, zh-CN)")

	return cmd
}

func runAuthURL(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	_, acct, err := selectAccount(cfg)
	if err != nil {
		return err
	}

	flowCfg, ok := acct.FlowConfig()
	if !ok {
		return fmt.Errorf("user authorization is not enabled for this account")
	}

	openID := args[0]

	asCard, _ := cmd.Flags().GetBool("card")
	if asCard {
		locale, _ := cmd.Flags().GetString("locale")

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(oauth.AuthCard(flowCfg, openID, locale))
	}

	fmt.Println(oauth.AuthorizeURL(flowCfg, openID))

	return nil
}
