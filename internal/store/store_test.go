package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharbhayani/SigText/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testOrg(name, wallet string) model.Organization {
	now := time.Now().UTC()
	return model.Organization{
		ID:            uuid.New().String(),
		Name:          name,
		WalletAddress: wallet,
		Status:        model.OrgVerified,
		Metadata:      map[string]string{"phone_numbers": "+15551234567"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testMessage(content, sig string) model.VerifiedMessage {
	now := time.Now().UTC()
	return model.VerifiedMessage{
		ID:          uuid.New().String(),
		Content:     content,
		Signature:   sig,
		ContentHash: model.ContentHash(content),
		Sender:      "0x1111111111111111111111111111111111111111",
		Status:      model.MessageVerified,
		CreatedAt:   now,
		VerifiedAt:  now,
	}
}

func TestSaveMessage_DuplicateSkipped(t *testing.T) {
	s := newTestStore(t)

	m := testMessage("Test message for verification", "a1b2c3")
	inserted, err := s.SaveMessage(m)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same (signature, content hash), different id: conflict is skipped
	dup := m
	dup.ID = uuid.New().String()
	inserted, err = s.SaveMessage(dup)
	require.NoError(t, err)
	assert.False(t, inserted, "re-verifying identical signed content must not create a second row")

	msgs, err := s.RecentMessages(10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSaveMessage_DifferentContentSameSignature(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveMessage(testMessage("message one", "sig-a"))
	require.NoError(t, err)
	inserted, err := s.SaveMessage(testMessage("message two", "sig-a"))
	require.NoError(t, err)
	assert.True(t, inserted, "same signature over different content is a distinct record")
}

func TestAttemptLog(t *testing.T) {
	s := newTestStore(t)

	s.LogAttempt(model.VerificationAttempt{
		ID:        uuid.New().String(),
		Method:    model.MethodSMS,
		Success:   true,
		CreatedAt: time.Now().UTC(),
	})
	s.LogAttempt(model.VerificationAttempt{
		ID:          uuid.New().String(),
		Method:      model.MethodQR,
		Success:     false,
		Error:       "organization not found",
		ContentHash: model.ContentHash("bad message"),
		CreatedAt:   time.Now().UTC(),
	})
	s.Flush()

	all, err := s.QueryAttempts(AttemptQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := s.QueryAttempts(AttemptQuery{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, model.MethodQR, failed[0].Method)
	assert.Equal(t, "organization not found", failed[0].Error)

	// queryable by content hash for anti-replay review
	byHash, err := s.QueryAttempts(AttemptQuery{ContentHash: model.ContentHash("bad message")})
	require.NoError(t, err)
	assert.Len(t, byHash, 1)

	sms, err := s.QueryAttempts(AttemptQuery{Method: model.MethodSMS})
	require.NoError(t, err)
	assert.Len(t, sms, 1)
}

func TestReplaceOrganizations(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.ReplaceOrganizations([]model.Organization{
		testOrg("Acme Bank", "0x1111111111111111111111111111111111111111"),
		testOrg("Globex", "0x2222222222222222222222222222222222222222"),
	}))

	orgs, err := s.Organizations()
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	// Snapshot semantics: a second replace fully overwrites
	require.NoError(t, s.ReplaceOrganizations([]model.Organization{
		testOrg("Initech", "0x3333333333333333333333333333333333333333"),
	}))
	orgs, err = s.Organizations()
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Initech", orgs[0].Name)
	assert.Equal(t, "+15551234567", orgs[0].Metadata["phone_numbers"])
}

func TestOrganizationByWallet(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceOrganizations([]model.Organization{
		testOrg("Acme Bank", "0x1111111111111111111111111111111111111111"),
	}))

	org, err := s.OrganizationByWallet("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "Acme Bank", org.Name)

	_, err = s.OrganizationByWallet("0x9999999999999999999999999999999999999999")
	assert.Error(t, err)
}

func TestOrganizationByPhone(t *testing.T) {
	s := newTestStore(t)

	pending := testOrg("Pending Corp", "0x4444444444444444444444444444444444444444")
	pending.Status = model.OrgPending
	require.NoError(t, s.ReplaceOrganizations([]model.Organization{
		testOrg("Acme Bank", "0x1111111111111111111111111111111111111111"),
		pending,
	}))

	org, err := s.OrganizationByPhone("+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "Acme Bank", org.Name, "only verified organizations resolve")

	_, err = s.OrganizationByPhone("+15550000000")
	assert.Error(t, err)
}

func TestSyncedAt(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.SyncedAt().IsZero())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SetSyncedAt(now))
	assert.Equal(t, now, s.SyncedAt())

	later := now.Add(time.Minute)
	require.NoError(t, s.SetSyncedAt(later))
	assert.Equal(t, later, s.SyncedAt())
}
