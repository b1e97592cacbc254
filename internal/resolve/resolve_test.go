package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharbhayani/SigText/internal/model"
)

type fakeDirectory struct {
	orgs map[string]*model.Organization
}

func (d *fakeDirectory) OrganizationByPhone(_ context.Context, phone string) (*model.Organization, error) {
	if org, ok := d.orgs[phone]; ok {
		return org, nil
	}
	return nil, errors.New("no match")
}

func TestResolve_AddressShapedHint(t *testing.T) {
	r := New(nil)

	res, err := r.Resolve(context.Background(), "0xABCDEF0123456789", "")
	require.NoError(t, err)
	assert.Equal(t, "0xABCDEF0123456789", res.Address)
	assert.Equal(t, SourceHint, res.Source)

	res, err = r.Resolve(context.Background(), "did:web:acme.example", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "did:web:acme.example", res.Address, "address-shaped hint wins over phone lookup")
	assert.Equal(t, SourceHint, res.Source)
}

func TestResolve_PhoneDirectoryHit(t *testing.T) {
	dir := &fakeDirectory{orgs: map[string]*model.Organization{
		"+15551234567": {
			Name:          "Acme Bank",
			WalletAddress: "0x1111111111111111111111111111111111111111",
			Status:        model.OrgVerified,
		},
	}}
	r := New(dir)

	res, err := r.Resolve(context.Background(), "", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", res.Address)
	assert.Equal(t, SourceDirectory, res.Source)
	require.NotNil(t, res.Org)
	assert.Equal(t, "Acme Bank", res.Org.Name)
}

func TestResolve_UnverifiedOrgDoesNotResolve(t *testing.T) {
	dir := &fakeDirectory{orgs: map[string]*model.Organization{
		"+15551234567": {
			Name:          "Pending Corp",
			WalletAddress: "0x2222222222222222222222222222222222222222",
			Status:        model.OrgPending,
		},
	}}
	r := New(dir)

	_, err := r.Resolve(context.Background(), "", "+15551234567")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolve_Unresolved(t *testing.T) {
	r := New(&fakeDirectory{})

	_, err := r.Resolve(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUnresolved)

	_, err = r.Resolve(context.Background(), "Acme Bank", "")
	assert.ErrorIs(t, err, ErrUnresolved, "a display-name hint is not address-shaped")

	_, err = r.Resolve(context.Background(), "", "+15559999999")
	assert.ErrorIs(t, err, ErrUnresolved, "directory miss")
}
