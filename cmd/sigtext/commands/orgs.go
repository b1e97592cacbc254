package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/backend"
	"github.com/tusharbhayani/SigText/internal/identity"
	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/safefile"
)

func newOrgsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Manage the verified-organization directory",
	}
	cmd.AddCommand(newOrgsListCmd(), newOrgsRegisterCmd())
	return cmd
}

func newOrgsListCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List organizations from the local mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			var orgs []model.Organization
			if remote {
				if !cfg.Backend.Configured() {
					return fmt.Errorf("no backend configured: set backend.url in %s", cfgFile)
				}
				client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey)
				var err error
				orgs, err = client.VerifiedOrganizations(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetching organizations: %w", err)
				}
			} else {
				st, err := openStore(cfg, quietLogger())
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()
				orgs, err = st.Organizations()
				if err != nil {
					return err
				}
			}

			if len(orgs) == 0 {
				fmt.Println("No organizations found. Run 'sigtext sync' to populate the mirror.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tSTATUS\tWALLET\tDOMAIN\n")
			for _, o := range orgs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Name, o.Status, o.WalletAddress, o.Domain)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "query the backend instead of the local mirror")
	return cmd
}

func newOrgsRegisterCmd() *cobra.Command {
	var name, wallet, domain, website, email, pubkeyFile string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Submit a new organization for review",
		Long: `Registers an organization with the backend. The organization is
created with status pending; verification happens out of band. With
--pubkey, the Ed25519 public key is registered so the server performs
real cryptographic checks on this organization's messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || wallet == "" {
				return fmt.Errorf("--name and --wallet are required")
			}
			cfg := loadConfig()
			if !cfg.Backend.Configured() {
				return fmt.Errorf("no backend configured: set backend.url in %s", cfgFile)
			}

			org := model.Organization{
				Name:          name,
				WalletAddress: wallet,
				Domain:        domain,
				Website:       website,
				ContactEmail:  email,
			}
			if pubkeyFile != "" {
				raw, err := safefile.ReadTextMax(pubkeyFile, 16*1024)
				if err != nil {
					return fmt.Errorf("reading public key: %w", err)
				}
				key := strings.TrimSpace(raw)
				if _, err := identity.ParsePublicKey(key); err != nil {
					return fmt.Errorf("invalid public key: %w", err)
				}
				org.PublicKey = key
			}

			client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey)
			created, err := client.RegisterOrganization(cmd.Context(), org)
			if err != nil {
				return fmt.Errorf("registering organization: %w", err)
			}

			fmt.Printf("Registered %s (id %s, status %s)\n", created.Name, created.ID, created.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "organization name")
	cmd.Flags().StringVar(&wallet, "wallet", "", "primary wallet address")
	cmd.Flags().StringVar(&domain, "domain", "", "organization domain")
	cmd.Flags().StringVar(&website, "website", "", "organization website")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&pubkeyFile, "pubkey", "", "path to an Ed25519 public key (hex or base64)")
	return cmd
}
