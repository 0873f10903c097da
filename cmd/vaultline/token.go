package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vaultline/vaultline/internal/identity"
)

var (
	tokenSubject string
	tokenName    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Session token utilities",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Mint a session token for local testing",
	Long: `issue signs a session token with the local signing key and prints it.
Intended for smoke-testing the API without going through login, e.g.:

  vaultline token issue --subject alice --name Alice --ttl 1h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenSubject == "" {
			return fmt.Errorf("--subject is required")
		}

		keys := identity.NewKeyManager(viper.GetString("identity.key_dir"))
		if err := keys.LoadOrCreate(); err != nil {
			return fmt.Errorf("signing key: %w", err)
		}

		issuerURL := viper.GetString("identity.issuer_url")
		if issuerURL == "" {
			issuerURL = fmt.Sprintf("http://localhost:%d", viper.GetInt("server.port"))
		}

		tokens := identity.NewTokenIssuer(keys.Key(), issuerURL, tokenTTL)
		tok, err := tokens.Issue(tokenSubject, tokenName)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "", "subject identifier (required)")
	tokenIssueCmd.Flags().StringVar(&tokenName, "name", "", "display name claim")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	tokenCmd.AddCommand(tokenIssueCmd)
}
