package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/tusharbhayani/SigText/internal/identity"
	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/verify"
)

// formatOnly matches signatures that look like real signature material
// when the sending organization has not registered a public key.
var formatOnly = regexp.MustCompile(`^[0-9a-fA-F]{128,}$`)

// Verifier decides whether a message is authentic. When the resolved
// organization has a registered Ed25519 public key the signature is
// cryptographically checked against the content; otherwise only the
// signature format is validated and the result is flagged accordingly.
type Verifier struct {
	dir    Directory
	cache  *Cache
	logger *slog.Logger
}

// NewVerifier builds a Verifier. cache may be nil.
func NewVerifier(dir Directory, cache *Cache, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{dir: dir, cache: cache, logger: logger}
}

// Result is the outcome of one server-side verification.
type Result struct {
	Valid     bool
	OrgID     string
	OrgName   string
	Reason    string
	Check     string // "ed25519" or "format-only"
	MessageID string
	Duplicate bool
}

// Verify resolves the sender, checks the signature, and records the
// message when it verifies.
func (v *Verifier) Verify(ctx context.Context, content, signature, sender string) (*Result, error) {
	if content == "" {
		return &Result{Reason: "message content is empty"}, nil
	}
	sig := verify.Normalize(signature)
	if sig == "" {
		return &Result{Reason: "signature is empty"}, nil
	}

	org, err := v.lookupOrg(ctx, sender)
	if errors.Is(err, ErrNotFound) {
		return &Result{Reason: "sender is not a registered organization"}, nil
	}
	if err != nil {
		return nil, err
	}
	if org.Status != model.OrgVerified {
		return &Result{Reason: "organization is not verified", OrgID: org.ID, OrgName: org.Name}, nil
	}

	res := &Result{OrgID: org.ID, OrgName: org.Name}
	if org.PublicKey != "" {
		pub, err := identity.ParsePublicKey(org.PublicKey)
		if err != nil {
			v.logger.Warn("organization has unparseable public key", "org", org.ID, "error", err)
			return &Result{OrgID: org.ID, OrgName: org.Name, Reason: "organization key is invalid"}, nil
		}
		res.Check = "ed25519"
		ok, err := identity.VerifyContent(pub, content, sig)
		if err != nil {
			res.Reason = "signature is not valid hex signature material"
		} else if !ok {
			res.Reason = "signature does not match message content"
		}
		res.Valid = ok && err == nil
	} else {
		res.Check = "format-only"
		res.Valid = formatOnly.MatchString(sig)
		if !res.Valid {
			res.Reason = "signature is not valid signature material"
		}
	}

	if res.Valid {
		if err := v.record(ctx, res, content, sig, sender); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (v *Verifier) lookupOrg(ctx context.Context, sender string) (*model.Organization, error) {
	if v.cache != nil {
		if org, ok := v.cache.Organization(ctx, sender); ok {
			return org, nil
		}
	}
	org, err := v.dir.OrganizationByWallet(ctx, sender)
	if err != nil {
		return nil, err
	}
	if v.cache != nil {
		v.cache.StoreOrganization(ctx, sender, org)
	}
	return org, nil
}

func (v *Verifier) record(ctx context.Context, res *Result, content, sig, sender string) error {
	now := time.Now().UTC()
	msg := &model.VerifiedMessage{
		ID:          uuid.NewString(),
		OrgID:       res.OrgID,
		Content:     content,
		Signature:   sig,
		ContentHash: model.ContentHash(content),
		Sender:      sender,
		Status:      model.MessageVerified,
		Details:     fmt.Sprintf(`{"check":%q,"signature_length":%d}`, res.Check, len(sig)),
		CreatedAt:   now,
		VerifiedAt:  now,
	}
	inserted, err := v.dir.InsertMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("recording verified message: %w", err)
	}
	if inserted {
		res.MessageID = msg.ID
	}
	res.Duplicate = !inserted
	return nil
}
