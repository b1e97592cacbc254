// Package mcpserver exposes the verification pipeline as an MCP tool
// server over stdio, so agents and assistants can verify messages and
// query the audit log without shelling out to the CLI.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tusharbhayani/SigText/internal/store"
	"github.com/tusharbhayani/SigText/internal/verify"
)

// NewServer builds the MCP server with the sigtext tool set.
func NewServer(svc *verify.Service, st *store.Store, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "sigtext", Version: version}, nil)
	registerTools(s, svc, st)
	return s
}

// Serve runs the server on stdio until the client disconnects.
func Serve(ctx context.Context, s *mcp.Server) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
