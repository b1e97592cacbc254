package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/identity"
)

func newKeygenCmd() *cobra.Command {
	var name, outDir string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 signing keypair for an organization",
		Example: `  sigtext keygen --name acme-bank
  sigtext keygen --name acme-bank --out ./keys/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if outDir == "" {
				outDir = loadConfig().KeysDir
			}

			kp, err := identity.GenerateKeypair(name)
			if err != nil {
				return fmt.Errorf("generating keypair: %w", err)
			}
			if err := kp.Save(outDir); err != nil {
				return fmt.Errorf("saving keypair: %w", err)
			}

			fp := identity.Fingerprint(kp.PublicKey)
			fmt.Printf("Generated keypair for %s\n", name)
			fmt.Printf("  Private: %s/%s.key\n", outDir, name)
			fmt.Printf("  Public:  %s/%s.pub\n", outDir, name)
			fmt.Printf("  Public key (hex): %s\n", identity.EncodePublicKey(kp.PublicKey))
			fmt.Printf("  Fingerprint: %s\n", fp[:16]+"...")
			fmt.Println("\nRegister the public key with 'sigtext orgs register --pubkey'.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "key name, usually the organization slug")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to keys_dir from config)")
	return cmd
}
