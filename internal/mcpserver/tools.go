package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tusharbhayani/SigText/internal/extract"
	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/store"
	"github.com/tusharbhayani/SigText/internal/verify"
)

type toolHandler = func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func registerTools(s *mcp.Server, svc *verify.Service, st *store.Store) {
	s.AddTool(
		&mcp.Tool{
			Name:        "verify_message",
			Description: "Verify a message carrying an embedded signature tag. Returns the verdict, the resolved organization, and any content warnings.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "description": "Raw message text including the signature tag"},
					"phone":   map[string]any{"type": "string", "description": "Sender phone number, for directory lookup"},
				},
				"required": []string{"message"},
			},
		},
		verifyMessageHandler(svc),
	)

	s.AddTool(
		&mcp.Tool{
			Name:        "extract_signature",
			Description: "Extract the signature tag from a message without verifying it. Returns the clean content, the signature, and the matched scheme.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "description": "Raw message text"},
				},
				"required": []string{"message"},
			},
		},
		extractSignatureHandler(),
	)

	s.AddTool(
		&mcp.Tool{
			Name:        "query_attempts",
			Description: "Query the verification attempt log.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"method": map[string]any{"type": "string", "description": "Filter by method: sms, qr, or manual"},
					"failed": map[string]any{"type": "boolean", "description": "Only failed attempts"},
					"limit":  map[string]any{"type": "number", "description": "Max entries (default 50)"},
				},
			},
		},
		queryAttemptsHandler(st),
	)

	s.AddTool(
		&mcp.Tool{
			Name:        "list_organizations",
			Description: "List organizations cached in the local mirror.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		listOrganizationsHandler(st),
	)
}

func verifyMessageHandler(svc *verify.Service) toolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := toolArgs(req)
		message, _ := args["message"].(string)
		if message == "" {
			return errorResult("message is required"), nil
		}
		phone, _ := args["phone"].(string)

		method := model.MethodManual
		if phone != "" {
			method = model.MethodSMS
		}
		out := svc.VerifyMessage(ctx, message, phone, "mcp", method)

		payload := map[string]any{
			"valid": out.Valid,
		}
		if out.OrgName != "" {
			payload["organization"] = out.OrgName
		}
		if out.Error != "" {
			payload["error"] = out.Error
		}
		if out.Mock {
			payload["degraded"] = true
		}
		if out.Duplicate {
			payload["duplicate"] = true
		}
		if out.Scan != nil && len(out.Scan.Findings) > 0 {
			payload["content_verdict"] = string(out.Scan.Verdict)
		}
		return jsonResult(payload), nil
	}
}

func extractSignatureHandler() toolHandler {
	return func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := toolArgs(req)
		message, _ := args["message"].(string)
		if message == "" {
			return errorResult("message is required"), nil
		}

		parsed := extract.Message(message)
		if !parsed.HasSignature() {
			return jsonResult(map[string]any{"found": false}), nil
		}
		return jsonResult(map[string]any{
			"found":     true,
			"content":   parsed.Content,
			"signature": parsed.Signature,
			"scheme":    string(parsed.Scheme),
			"sender":    parsed.SenderHint,
		}), nil
	}
}

func queryAttemptsHandler(st *store.Store) toolHandler {
	return func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if st == nil {
			return errorResult("no local store available"), nil
		}
		args := toolArgs(req)
		method, _ := args["method"].(string)
		failed, _ := args["failed"].(bool)
		limit := 50
		if f, ok := args["limit"].(float64); ok && f > 0 {
			limit = int(f)
		}

		attempts, err := st.QueryAttempts(store.AttemptQuery{
			Method:     model.Method(method),
			FailedOnly: failed,
			Limit:      limit,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil
		}
		return jsonResult(attempts), nil
	}
}

func listOrganizationsHandler(st *store.Store) toolHandler {
	return func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if st == nil {
			return errorResult("no local store available"), nil
		}
		orgs, err := st.Organizations()
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil
		}
		return jsonResult(orgs), nil
	}
}

// toolArgs decodes the raw JSON arguments into a map. A nil map means
// no arguments were supplied.
func toolArgs(req *mcp.CallToolRequest) map[string]any {
	var args map[string]any
	if len(req.Params.Arguments) > 0 {
		_ = json.Unmarshal(req.Params.Arguments, &args)
	}
	return args
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encoding result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
