package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	var phone, sender, signature, user string

	cmd := &cobra.Command{
		Use:   "verify [message]",
		Short: "Verify a signed message",
		Long: `Verifies a message carrying an embedded signature tag such as
[SIG:...], [WEB3SIG:0x...], or [DID:...#SIG:...]. The message is read
from the argument, or from stdin when no argument is given.

With --signature and --sender the message is treated as plain content
and the supplied signature is checked directly (manual entry).`,
		Example: `  sigtext verify "Your code is 123456 [SIG:ab12...]"
  sigtext verify --phone +15551234567 "$(cat message.txt)"
  cat message.txt | sigtext verify
  sigtext verify --sender 0xabc... --signature ab12... "Your code is 123456"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if signature != "" && sender == "" {
				return fmt.Errorf("--signature requires --sender")
			}
			raw, err := messageArg(args)
			if err != nil {
				return err
			}

			cfg := loadConfig()
			logger := quietLogger()

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}

			svc := buildService(cfg, st, logger)

			var out *verify.Outcome
			if signature != "" {
				out = svc.VerifyManual(cmd.Context(), raw, signature, sender, user)
			} else {
				out = svc.VerifyMessage(cmd.Context(), raw, phone, user, methodForInput(phone))
			}

			printOutcome(out)
			// Close before any exit so queued audit writes land
			_ = st.Close()
			if !out.Valid {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "sender phone number, for directory lookup")
	cmd.Flags().StringVar(&sender, "sender", "", "sender address (did:... or 0x...), for manual verification")
	cmd.Flags().StringVar(&signature, "signature", "", "detached signature, for manual verification")
	cmd.Flags().StringVar(&user, "user", "", "user ID recorded in the audit log")
	return cmd
}

func messageArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading message from stdin: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", fmt.Errorf("no message given")
	}
	return raw, nil
}
