package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/qr"
	"github.com/tusharbhayani/SigText/internal/safefile"
)

func newQRCmd() *cobra.Command {
	var generate bool
	var message, signature, sender, orgName string

	cmd := &cobra.Command{
		Use:   "qr [payload.json]",
		Short: "Verify or generate a QR code payload",
		Long: `Verifies a scanned QR payload (a JSON file with message, signature,
and sender fields). With --generate, composes a payload from the flags
and prints it to stdout.`,
		Example: `  sigtext qr scanned.json
  sigtext qr --generate --message "Pay invoice #42" --signature ab12... --sender 0xabc... --org "Acme Bank"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if generate {
				if message == "" || signature == "" || sender == "" {
					return fmt.Errorf("--generate requires --message, --signature, and --sender")
				}
				data, err := qr.Compose(message, signature, sender, orgName)
				if err != nil {
					return fmt.Errorf("composing payload: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("payload file required (or use --generate)")
			}
			data, err := safefile.ReadFileMax(args[0], 64*1024)
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			payload, err := qr.Parse(data)
			if err != nil {
				return fmt.Errorf("invalid QR payload: %w", err)
			}

			cfg := loadConfig()
			logger := quietLogger()
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}

			out := buildService(cfg, st, logger).VerifyQR(cmd.Context(), payload, "")
			printOutcome(out)
			// Close before any exit so queued audit writes land
			_ = st.Close()
			if !out.Valid {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "compose a payload instead of verifying")
	cmd.Flags().StringVar(&message, "message", "", "message content")
	cmd.Flags().StringVar(&signature, "signature", "", "detached signature")
	cmd.Flags().StringVar(&sender, "sender", "", "sender address")
	cmd.Flags().StringVar(&orgName, "org", "", "organization display name")
	return cmd
}
