// Package resolve turns a raw sender signal (a DID hint extracted from
// the message, or a phone number) into the canonical address checked
// against the organization directory.
package resolve

import (
	"context"
	"errors"
	"strings"

	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/store"
)

// ErrUnresolved is returned when no canonical address could be
// determined. Callers must treat this as "cannot verify" — an unresolved
// sender is never passed to verification as a valid anonymous one.
var ErrUnresolved = errors.New("sender could not be resolved")

// Source records how an address was obtained.
type Source string

const (
	SourceHint      Source = "hint"      // already address-shaped (did: or 0x)
	SourceDirectory Source = "directory" // phone matched an organization
)

// Resolution is a successfully resolved sender.
type Resolution struct {
	Address string
	Source  Source
	// Org is set when the address came from a directory match.
	Org *model.Organization
}

// Directory is the organization lookup the resolver queries for phone
// numbers. Implemented by backend.Client and by the local mirror.
type Directory interface {
	OrganizationByPhone(ctx context.Context, phone string) (*model.Organization, error)
}

// Resolver resolves sender hints against a directory.
type Resolver struct {
	dir Directory
}

// New creates a resolver. dir may be nil, in which case only
// address-shaped hints resolve.
func New(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve determines the canonical sender address. Order: an
// address-shaped hint (did: or 0x prefix) is returned unchanged; then a
// supplied phone number is looked up among verified organizations; then
// the sender is reported unresolved with ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, hint, phone string) (Resolution, error) {
	hint = strings.TrimSpace(hint)
	if strings.HasPrefix(hint, "did:") || strings.HasPrefix(hint, "0x") || strings.HasPrefix(hint, "0X") {
		return Resolution{Address: hint, Source: SourceHint}, nil
	}

	if phone != "" && r.dir != nil {
		org, err := r.dir.OrganizationByPhone(ctx, phone)
		if err == nil && org != nil && org.Status == model.OrgVerified {
			return Resolution{
				Address: org.WalletAddress,
				Source:  SourceDirectory,
				Org:     org,
			}, nil
		}
	}

	return Resolution{}, ErrUnresolved
}

// MirrorDirectory adapts the local store to the Directory interface so
// resolution keeps working offline.
type MirrorDirectory struct {
	Store *store.Store
}

func (d MirrorDirectory) OrganizationByPhone(_ context.Context, phone string) (*model.Organization, error) {
	return d.Store.OrganizationByPhone(phone)
}
