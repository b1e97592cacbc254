package commands

import (
	"github.com/spf13/cobra"

	"github.com/tusharbhayani/SigText/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start sigtext as an MCP server (stdio)",
		Long: `Exposes sigtext as an MCP tool server. Add to your MCP client config:

  {
    "mcpServers": {
      "sigtext": {
        "command": "sigtext",
        "args": ["mcp", "--config", "./sigtext.yaml"]
      }
    }
  }

Tools: verify_message, extract_signature, query_attempts, list_organizations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := quietLogger()

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc := buildService(cfg, st, logger)
			s := mcpserver.NewServer(svc, st, version)
			return mcpserver.Serve(cmd.Context(), s)
		},
	}
}
