package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharbhayani/SigText/internal/extract"
	"github.com/tusharbhayani/SigText/internal/resolve"
	"github.com/tusharbhayani/SigText/internal/store"
	"github.com/tusharbhayani/SigText/internal/verify"
)

func makeRequest(args map[string]any) *mcp.CallToolRequest {
	var raw json.RawMessage
	if args != nil {
		raw, _ = json.Marshal(args)
	}
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func newTestService(t *testing.T) (*verify.Service, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := verify.NewService(verify.HeuristicChecker{}, resolve.New(nil), st, nil, logger)
	return svc, st
}

func TestVerifyMessageTool(t *testing.T) {
	svc, _ := newTestService(t)
	handler := verifyMessageHandler(svc)

	sig := strings.Repeat("ab", 64)
	msg := extract.ComposeDID("Your code is 123456", "did:web:acme.example", sig)

	res, err := handler(context.Background(), makeRequest(map[string]any{"message": msg}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, true, out["degraded"])
}

func TestVerifyMessageTool_MissingMessage(t *testing.T) {
	svc, _ := newTestService(t)
	handler := verifyMessageHandler(svc)

	res, err := handler(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestExtractSignatureTool(t *testing.T) {
	handler := extractSignatureHandler()

	sig := strings.Repeat("cd", 32)
	res, err := handler(context.Background(), makeRequest(map[string]any{
		"message": "Hello [SIG:" + sig + "]",
	}))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, true, out["found"])
	assert.Equal(t, "Hello", out["content"])
	assert.Equal(t, sig, out["signature"])
	assert.Equal(t, "hex", out["scheme"])

	res, err = handler(context.Background(), makeRequest(map[string]any{"message": "no tag here"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, false, out["found"])
}

func TestQueryAttemptsTool(t *testing.T) {
	svc, st := newTestService(t)

	// Generate one failed attempt (no signature tag)
	svc.VerifyMessage(context.Background(), "no signature", "", "tester", "manual")
	st.Flush()

	handler := queryAttemptsHandler(st)
	res, err := handler(context.Background(), makeRequest(map[string]any{"failed": true}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no signature to verify")
}
