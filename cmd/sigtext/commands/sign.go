package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/extract"
	"github.com/tusharbhayani/SigText/internal/identity"
)

func newSignCmd() *cobra.Command {
	var name, keysDir, scheme, did string
	var sigOnly bool

	cmd := &cobra.Command{
		Use:   "sign <message>",
		Short: "Sign message content and emit the tagged message",
		Long: `Signs the content with the named Ed25519 key and prints the message
with the signature tag appended, ready to send. Schemes: hex ([SIG:]),
web3 ([WEB3SIG:0x...]), did ([DID:...#SIG:...]).`,
		Example: `  sigtext sign --key acme-bank "Your code is 123456"
  sigtext sign --key acme-bank --scheme did --did did:web:acme.example "Your code is 123456"
  sigtext sign --key acme-bank --raw "Your code is 123456"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--key is required")
			}
			if keysDir == "" {
				keysDir = loadConfig().KeysDir
			}

			kp, err := identity.LoadKeypair(keysDir, name)
			if err != nil {
				return fmt.Errorf("loading keypair: %w", err)
			}

			content := args[0]
			sig := identity.SignContent(kp.PrivateKey, content)
			if sigOnly {
				fmt.Println(sig)
				return nil
			}

			switch scheme {
			case "hex":
				fmt.Println(extract.Compose(content, sig, extract.SchemeHex))
			case "web3":
				fmt.Println(extract.Compose(content, sig, extract.SchemeWeb3))
			case "did":
				if did == "" {
					return fmt.Errorf("--scheme did requires --did")
				}
				fmt.Println(extract.ComposeDID(content, did, sig))
			default:
				return fmt.Errorf("unknown scheme %q (hex, web3, did)", scheme)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "key", "", "key name to sign with")
	cmd.Flags().StringVar(&keysDir, "keys-dir", "", "keys directory (defaults to keys_dir from config)")
	cmd.Flags().StringVar(&scheme, "scheme", "web3", "signature tag scheme (hex, web3, did)")
	cmd.Flags().StringVar(&did, "did", "", "sender DID for the did scheme")
	cmd.Flags().BoolVar(&sigOnly, "raw", false, "print only the detached signature")
	return cmd
}
