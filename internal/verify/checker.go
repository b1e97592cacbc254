// Package verify orchestrates the message verification workflow:
// extraction, sender resolution, the signature check, and result
// persistence.
package verify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tusharbhayani/SigText/internal/backend"
)

// CheckResult is the raw outcome of a signature check, before
// orchestration folds in details and persistence.
type CheckResult struct {
	Valid   bool
	OrgID   string
	OrgName string
	Reason  string            // human-readable explanation when invalid
	Detail  map[string]string // checker-specific detail fields
}

// Checker performs the actual signature check for a (content, signature,
// sender) triple. The hosted backend is the real implementation; the
// heuristic stands in when no backend is configured.
type Checker interface {
	Check(ctx context.Context, content, signature, sender string) (*CheckResult, error)
}

// Normalize strips a leading 0x and lower-cases a signature token, the
// form the hosted procedure expects.
func Normalize(signature string) string {
	s := strings.TrimSpace(signature)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return strings.ToLower(s)
}

// RemoteChecker delegates to the hosted verify_message_signature
// procedure via the backend client.
type RemoteChecker struct {
	Client *backend.Client
}

func (r *RemoteChecker) Check(ctx context.Context, content, signature, sender string) (*CheckResult, error) {
	resp, err := r.Client.Verify(ctx, content, signature, sender)
	if err != nil {
		var pe *backend.PermissionError
		if errors.As(err, &pe) {
			// Known access-control rejection: rewrite into a readable message
			return nil, fmt.Errorf("verification service refused the request; check your API key")
		}
		return nil, fmt.Errorf("verification service unreachable: %w", err)
	}

	res := &CheckResult{
		Valid:   resp.IsValid,
		OrgID:   resp.OrganizationID,
		OrgName: resp.OrganizationName,
		Reason:  resp.Error,
		Detail:  resp.Details,
	}
	if res.Detail == nil {
		res.Detail = map[string]string{}
	}
	res.Detail["check"] = "remote"
	return res, nil
}

// HeuristicChecker is the degraded local stand-in used when no backend is
// configured: valid iff the signature is at least 64 characters and the
// content is non-empty. It fabricates a placeholder organization and tags
// the result with method "mock" so callers and tests can tell it apart
// from real verification.
type HeuristicChecker struct{}

var hexish = regexp.MustCompile(`^[0-9a-f]+$`)

func (HeuristicChecker) Check(_ context.Context, content, signature, _ string) (*CheckResult, error) {
	sig := Normalize(signature)
	valid := len(sig) >= 64 && len(content) > 0

	res := &CheckResult{
		Valid: valid,
		Detail: map[string]string{
			"check":  "mock",
			"method": "mock",
		},
	}
	if valid {
		res.OrgID = "mock-org"
		res.OrgName = "Demo Organization"
		if !hexish.MatchString(sig) {
			res.Detail["note"] = "signature is not hex; accepted by length only"
		}
	} else {
		res.Reason = "signature too short or content empty"
	}
	return res, nil
}
