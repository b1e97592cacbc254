package verify

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharbhayani/SigText/internal/extract"
	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/qr"
	"github.com/tusharbhayani/SigText/internal/resolve"
	"github.com/tusharbhayani/SigText/internal/store"
)

const (
	acmeWallet = "0x1111111111111111111111111111111111111111"
	sig128     = "a1b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef123456" +
		"789012345678901234567890abcdef1234567890abcdef123456a1b2c3d4e5f6"
	testContent = "Test message for verification"
)

// formatChecker mimics the hosted procedure: look up the organization by
// wallet, require verified status, then apply the documented format
// check.
type formatChecker struct {
	orgs map[string]model.Organization
}

var formatRe = regexp.MustCompile(`^[0-9a-fA-F]{128,}$`)

func (c *formatChecker) Check(_ context.Context, content, signature, sender string) (*CheckResult, error) {
	org, ok := c.orgs[sender]
	if !ok {
		return &CheckResult{Reason: "no verified organization for sender", Detail: map[string]string{"check": "remote"}}, nil
	}
	if org.Status != model.OrgVerified {
		return &CheckResult{Reason: "organization is not verified", Detail: map[string]string{"check": "remote"}}, nil
	}
	if !formatRe.MatchString(signature) {
		return &CheckResult{Reason: "signature format invalid", Detail: map[string]string{"check": "remote"}}, nil
	}
	_ = content
	return &CheckResult{
		Valid:   true,
		OrgID:   org.ID,
		OrgName: org.Name,
		Detail:  map[string]string{"check": "remote"},
	}, nil
}

func acmeChecker() *formatChecker {
	return &formatChecker{orgs: map[string]model.Organization{
		acmeWallet: {ID: "org-acme", Name: "Acme Bank", WalletAddress: acmeWallet, Status: model.OrgVerified},
	}}
}

func newTestService(t *testing.T, checker Checker) (*Service, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.Open(filepath.Join(t.TempDir(), "verify.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(checker, resolve.New(nil), st, nil, logger)
	return svc, st
}

func TestVerifyManual_Valid(t *testing.T) {
	svc, _ := newTestService(t, acmeChecker())

	out := svc.VerifyManual(context.Background(), testContent, sig128, acmeWallet, "user-1")

	assert.True(t, out.Valid)
	assert.Equal(t, "Acme Bank", out.OrgName)
	assert.False(t, out.Mock)
	assert.NotEmpty(t, out.MessageID)
	assert.Equal(t, 128, out.Details.SignatureLength)
	assert.Equal(t, model.ContentHash(testContent), out.Details.ContentHash)
}

func TestVerifyManual_ShortSignature(t *testing.T) {
	svc, _ := newTestService(t, acmeChecker())

	out := svc.VerifyManual(context.Background(), testContent, "a1b2c3d4e5", acmeWallet, "user-1")

	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, out.MessageID, "failed checks leave no message row")
}

func TestVerifyManual_Idempotent(t *testing.T) {
	svc, st := newTestService(t, acmeChecker())

	first := svc.VerifyManual(context.Background(), testContent, sig128, acmeWallet, "user-1")
	require.True(t, first.Valid)
	require.NotEmpty(t, first.MessageID)

	second := svc.VerifyManual(context.Background(), testContent, sig128, acmeWallet, "user-1")
	assert.True(t, second.Valid)
	assert.True(t, second.Duplicate)
	assert.Empty(t, second.MessageID)

	msgs, err := st.RecentMessages(10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "re-verifying the same triple must not create two rows")

	// Both attempts are in the audit log
	st.Flush()
	attempts, err := st.QueryAttempts(store.AttemptQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestVerifyMessage_SMS(t *testing.T) {
	svc, st := newTestService(t, acmeChecker())

	raw := extract.ComposeDID(testContent, "did:web:acme.example", sig128)
	// The DID hint is address-shaped, so it resolves as-is; the checker
	// has no org registered under it.
	out := svc.VerifyMessage(context.Background(), raw, "+15551234567", "user-1", model.MethodSMS)
	assert.False(t, out.Valid)

	// With the sender registered under the DID, the same message verifies.
	checker := acmeChecker()
	checker.orgs["did:web:acme.example"] = model.Organization{
		ID: "org-acme", Name: "Acme Bank", Status: model.OrgVerified,
	}
	svc2 := NewService(checker, resolve.New(nil), st, nil, testLogger())
	out = svc2.VerifyMessage(context.Background(), raw, "+15551234567", "user-1", model.MethodSMS)
	assert.True(t, out.Valid)
	require.NotNil(t, out.Details.SMS)
	assert.Equal(t, "+15551234567", out.Details.SMS.Phone)
	assert.Equal(t, "did", out.Details.SMS.Scheme)
}

func TestVerifyMessage_NoSignature(t *testing.T) {
	svc, st := newTestService(t, acmeChecker())

	out := svc.VerifyMessage(context.Background(), "plain message with no tag", "", "user-1", model.MethodManual)

	assert.False(t, out.Valid)
	assert.Equal(t, "no signature to verify", out.Error)

	st.Flush()
	attempts, err := st.QueryAttempts(store.AttemptQuery{FailedOnly: true})
	require.NoError(t, err)
	assert.Len(t, attempts, 1, "a parse miss is still an audited attempt")
}

func TestVerifyMessage_UnresolvedSenderFailsClosed(t *testing.T) {
	// Heuristic checker approves any long signature, but an unresolved
	// sender must short-circuit before the check runs.
	svc, _ := newTestService(t, HeuristicChecker{})

	raw := extract.Compose(testContent, sig128, extract.SchemeHex)
	out := svc.VerifyMessage(context.Background(), raw, "", "user-1", model.MethodManual)

	assert.False(t, out.Valid, "unresolved sender must never be mock-approved")
	assert.Contains(t, out.Error, "resolved")
}

func TestVerifyQR(t *testing.T) {
	svc, _ := newTestService(t, acmeChecker())

	payload := &qr.Payload{
		Message:          testContent,
		Signature:        sig128,
		Sender:           acmeWallet,
		OrganizationName: "Acme Bank",
		Version:          "1",
	}
	out := svc.VerifyQR(context.Background(), payload, "user-1")

	assert.True(t, out.Valid)
	require.NotNil(t, out.Details.QR)
	assert.Equal(t, "Acme Bank", out.Details.QR.OrganizationName)
	assert.Equal(t, "1", out.Details.QR.PayloadVersion)
	assert.Equal(t, model.MethodQR, out.Details.Method)
}

func TestHeuristicChecker(t *testing.T) {
	svc, _ := newTestService(t, HeuristicChecker{})

	out := svc.VerifyManual(context.Background(), testContent, sig128, acmeWallet, "user-1")
	assert.True(t, out.Valid)
	assert.True(t, out.Mock, "degraded mode is flagged")
	assert.Equal(t, "Demo Organization", out.OrgName)
	assert.Equal(t, "mock", out.Details.Check)

	out = svc.VerifyManual(context.Background(), testContent, "a1b2c3d4e5", acmeWallet, "user-1")
	assert.False(t, out.Valid, "10-char signature fails even in degraded mode")

	out = svc.VerifyManual(context.Background(), "", sig128, acmeWallet, "user-1")
	assert.False(t, out.Valid, "empty content fails")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "abcdef", Normalize("0xABCDEF"))
	assert.Equal(t, "abcdef", Normalize("ABCDEF"))
	assert.Equal(t, "abc", Normalize("  abc "))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
