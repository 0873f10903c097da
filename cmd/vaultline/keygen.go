package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vaultline/vaultline/internal/identity"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the session-token signing keypair",
	Long: `keygen creates the RSA keypair used to sign and verify session tokens,
in the directory given by identity.key_dir. It fails if a key already exists;
serve creates the key on first run anyway, so keygen is only needed when the
key directory must be provisioned ahead of time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("identity.key_dir")
		keys := identity.NewKeyManager(dir)
		if err := keys.Load(); err == nil {
			return fmt.Errorf("signing key already exists in %s", dir)
		}
		if err := keys.Create(); err != nil {
			return err
		}
		fmt.Printf("signing keypair written to %s\n", dir)
		return nil
	},
}
