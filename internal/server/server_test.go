package server

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharbhayani/SigText/internal/backend"
	"github.com/tusharbhayani/SigText/internal/identity"
	"github.com/tusharbhayani/SigText/internal/model"
)

const (
	acmeWallet  = "0x1111111111111111111111111111111111111111"
	testContent = "Your one-time code is 123456"
)

type memDirectory struct {
	mu      sync.Mutex
	orgs    []model.Organization
	msgs    []model.VerifiedMessage
	lookups int
}

func (d *memDirectory) OrganizationByWallet(_ context.Context, wallet string) (*model.Organization, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	for i := range d.orgs {
		if d.orgs[i].WalletAddress == wallet {
			org := d.orgs[i]
			return &org, nil
		}
	}
	return nil, ErrNotFound
}

func (d *memDirectory) OrganizationByPhone(_ context.Context, phone string) (*model.Organization, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.orgs {
		if d.orgs[i].Status != model.OrgVerified {
			continue
		}
		for _, v := range d.orgs[i].Metadata {
			if v == phone {
				org := d.orgs[i]
				return &org, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (d *memDirectory) VerifiedOrganizations(_ context.Context) ([]model.Organization, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.Organization
	for _, o := range d.orgs {
		if o.Status == model.OrgVerified {
			out = append(out, o)
		}
	}
	return out, nil
}

func (d *memDirectory) InsertOrganization(_ context.Context, org *model.Organization) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	org.Status = model.OrgPending
	d.orgs = append(d.orgs, *org)
	return nil
}

func (d *memDirectory) RecentMessages(_ context.Context, limit int) ([]model.VerifiedMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	msgs := d.msgs
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]model.VerifiedMessage(nil), msgs...), nil
}

func (d *memDirectory) InsertMessage(_ context.Context, msg *model.VerifiedMessage) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.msgs {
		if m.Signature == msg.Signature && m.ContentHash == msg.ContentHash {
			return false, nil
		}
	}
	d.msgs = append(d.msgs, *msg)
	return true, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func verifiedOrg(wallet, publicKey string) model.Organization {
	return model.Organization{
		ID:            uuid.NewString(),
		Name:          "Acme Bank",
		WalletAddress: wallet,
		PublicKey:     publicKey,
		Status:        model.OrgVerified,
		Metadata:      map[string]string{"phone": "+15551234567"},
	}
}

func newTestServer(t *testing.T, dir Directory, opts Options) *backend.Client {
	t.Helper()
	opts.Dir = dir
	opts.Logger = testLogger()
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	apiKey := ""
	if len(opts.APIKeys) > 0 {
		apiKey = opts.APIKeys[0]
	}
	return backend.NewClient(ts.URL, apiKey)
}

func TestVerify_Ed25519(t *testing.T) {
	kp, err := identity.GenerateKeypair("acme")
	require.NoError(t, err)

	dir := &memDirectory{orgs: []model.Organization{
		verifiedOrg(acmeWallet, identity.EncodePublicKey(kp.PublicKey)),
	}}
	client := newTestServer(t, dir, Options{})

	sig := identity.SignContent(kp.PrivateKey, testContent)
	resp, err := client.Verify(context.Background(), testContent, sig, acmeWallet)
	require.NoError(t, err)
	assert.True(t, resp.IsValid)
	assert.Equal(t, "Acme Bank", resp.OrganizationName)
	assert.Equal(t, "ed25519", resp.Details["check"])
	require.Len(t, dir.msgs, 1)
	assert.Equal(t, model.MessageVerified, dir.msgs[0].Status)
}

func TestVerify_Ed25519_Tampered(t *testing.T) {
	kp, err := identity.GenerateKeypair("acme")
	require.NoError(t, err)

	dir := &memDirectory{orgs: []model.Organization{
		verifiedOrg(acmeWallet, identity.EncodePublicKey(kp.PublicKey)),
	}}
	client := newTestServer(t, dir, Options{})

	sig := identity.SignContent(kp.PrivateKey, testContent)
	resp, err := client.Verify(context.Background(), testContent+" (edited)", sig, acmeWallet)
	require.NoError(t, err)
	assert.False(t, resp.IsValid)
	assert.Contains(t, resp.Error, "does not match")
	assert.Empty(t, dir.msgs)
}

func TestVerify_FormatOnly(t *testing.T) {
	dir := &memDirectory{orgs: []model.Organization{verifiedOrg(acmeWallet, "")}}
	client := newTestServer(t, dir, Options{})

	sig := strings.Repeat("ab", 64)
	resp, err := client.Verify(context.Background(), testContent, sig, acmeWallet)
	require.NoError(t, err)
	assert.True(t, resp.IsValid)
	assert.Equal(t, "format-only", resp.Details["check"])

	short, err := client.Verify(context.Background(), testContent, "abc123", acmeWallet)
	require.NoError(t, err)
	assert.False(t, short.IsValid)
}

func TestVerify_UnknownSender(t *testing.T) {
	client := newTestServer(t, &memDirectory{}, Options{})

	resp, err := client.Verify(context.Background(), testContent, strings.Repeat("ab", 64), acmeWallet)
	require.NoError(t, err)
	assert.False(t, resp.IsValid)
	assert.Contains(t, resp.Error, "not a registered organization")
}

func TestVerify_PendingOrgRejected(t *testing.T) {
	org := verifiedOrg(acmeWallet, "")
	org.Status = model.OrgPending
	client := newTestServer(t, &memDirectory{orgs: []model.Organization{org}}, Options{})

	resp, err := client.Verify(context.Background(), testContent, strings.Repeat("ab", 64), acmeWallet)
	require.NoError(t, err)
	assert.False(t, resp.IsValid)
	assert.Contains(t, resp.Error, "not verified")
}

func TestVerify_DuplicateFlagged(t *testing.T) {
	dir := &memDirectory{orgs: []model.Organization{verifiedOrg(acmeWallet, "")}}
	client := newTestServer(t, dir, Options{})

	sig := strings.Repeat("cd", 64)
	first, err := client.Verify(context.Background(), testContent, sig, acmeWallet)
	require.NoError(t, err)
	assert.True(t, first.IsValid)
	assert.Empty(t, first.Details["duplicate"])

	second, err := client.Verify(context.Background(), testContent, sig, acmeWallet)
	require.NoError(t, err)
	assert.True(t, second.IsValid)
	assert.Equal(t, "true", second.Details["duplicate"])
	assert.Len(t, dir.msgs, 1)
}

func TestOrganizationEndpoints(t *testing.T) {
	dir := &memDirectory{orgs: []model.Organization{verifiedOrg(acmeWallet, "")}}
	client := newTestServer(t, dir, Options{})
	ctx := context.Background()

	org, err := client.OrganizationByWallet(ctx, acmeWallet)
	require.NoError(t, err)
	assert.Equal(t, "Acme Bank", org.Name)

	_, err = client.OrganizationByWallet(ctx, "0xdeadbeef")
	var nf *backend.NotFoundError
	assert.ErrorAs(t, err, &nf)

	byPhone, err := client.OrganizationByPhone(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, acmeWallet, byPhone.WalletAddress)

	orgs, err := client.VerifiedOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestRegisterOrganization(t *testing.T) {
	dir := &memDirectory{}
	client := newTestServer(t, dir, Options{})

	created, err := client.RegisterOrganization(context.Background(), model.Organization{
		Name:          "New Org",
		WalletAddress: "0x2222222222222222222222222222222222222222",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.OrgPending, created.Status)

	// Pending orgs are invisible to the verified listing.
	orgs, err := client.VerifiedOrganizations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestAuth(t *testing.T) {
	dir := &memDirectory{orgs: []model.Organization{verifiedOrg(acmeWallet, "")}}
	ts := httptest.NewServer(New(Options{Dir: dir, APIKeys: []string{"secret"}, Logger: testLogger()}).Handler())
	t.Cleanup(ts.Close)

	bad := backend.NewClient(ts.URL, "wrong")
	_, err := bad.VerifiedOrganizations(context.Background())
	var perm *backend.PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, "invalid_api_key", perm.Code)

	good := backend.NewClient(ts.URL, "secret")
	_, err = good.VerifiedOrganizations(context.Background())
	assert.NoError(t, err)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewCache(mr.Addr(), 2, time.Minute, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	dir := &memDirectory{orgs: []model.Organization{verifiedOrg(acmeWallet, "")}}
	client := newTestServer(t, dir, Options{Cache: cache})
	ctx := context.Background()

	sig := strings.Repeat("ef", 64)
	for i := 0; i < 2; i++ {
		_, err := client.Verify(ctx, testContent, sig, acmeWallet)
		require.NoError(t, err)
	}
	_, err = client.Verify(ctx, testContent, sig, acmeWallet)
	var perm *backend.PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, "rate_limited", perm.Code)
}

func TestOrgCacheShortCircuitsLookups(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewCache(mr.Addr(), 0, time.Minute, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	dir := &memDirectory{orgs: []model.Organization{verifiedOrg(acmeWallet, "")}}
	client := newTestServer(t, dir, Options{Cache: cache})
	ctx := context.Background()

	sig := strings.Repeat("01", 64)
	_, err = client.Verify(ctx, testContent, sig, acmeWallet)
	require.NoError(t, err)
	_, err = client.Verify(ctx, "another message entirely", sig, acmeWallet)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.lookups)
}

func TestWebhookURLValidation(t *testing.T) {
	cases := map[string]bool{
		"https://hooks.example.com/notify": true,
		"http://10.0.0.5/hook":             false,
		"http://127.0.0.1:9000/hook":       false,
		"http://0x7f000001/hook":           false,
		"http://2130706433/hook":           false,
		"ftp://example.com/hook":           false,
	}
	for url, ok := range cases {
		err := validateWebhookURL(url)
		if ok {
			assert.NoError(t, err, url)
		} else {
			assert.Error(t, err, url)
		}
	}
}

func TestVerifierEmptyInputs(t *testing.T) {
	v := NewVerifier(&memDirectory{}, nil, testLogger())
	res, err := v.Verify(context.Background(), "", "abc", acmeWallet)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = v.Verify(context.Background(), testContent, "", acmeWallet)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "signature is empty", res.Reason)
}
