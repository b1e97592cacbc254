package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tusharbhayani/SigText/internal/model"
)

// ErrNotFound is returned by directory lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Directory is the storage the server needs. *PGStore is the production
// implementation; tests substitute an in-memory fake.
type Directory interface {
	OrganizationByWallet(ctx context.Context, wallet string) (*model.Organization, error)
	OrganizationByPhone(ctx context.Context, phone string) (*model.Organization, error)
	VerifiedOrganizations(ctx context.Context) ([]model.Organization, error)
	InsertOrganization(ctx context.Context, org *model.Organization) error
	RecentMessages(ctx context.Context, limit int) ([]model.VerifiedMessage, error)
	InsertMessage(ctx context.Context, msg *model.VerifiedMessage) (bool, error)
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS organizations (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT,
	wallet_address TEXT NOT NULL UNIQUE,
	public_key TEXT,
	verification_status TEXT NOT NULL DEFAULT 'pending',
	logo_url TEXT,
	website TEXT,
	contact_email TEXT,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_by TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS organization_wallets (
	organization_id UUID NOT NULL REFERENCES organizations(id),
	wallet_address TEXT NOT NULL UNIQUE,
	PRIMARY KEY (organization_id, wallet_address)
);

CREATE TABLE IF NOT EXISTS verified_messages (
	id UUID PRIMARY KEY,
	organization_id UUID REFERENCES organizations(id),
	message_content TEXT NOT NULL,
	signature TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	sender_address TEXT NOT NULL,
	recipient_address TEXT,
	verification_status TEXT NOT NULL,
	verification_details JSONB NOT NULL DEFAULT '{}',
	block_reference TEXT,
	transaction_reference TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	verified_at TIMESTAMPTZ,
	UNIQUE (signature, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_pg_messages_created ON verified_messages(created_at DESC);
`

// PGStore is the Postgres-backed directory.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to Postgres and ensures the schema exists.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

const orgColumns = `o.id, o.name, COALESCE(o.domain, ''), o.wallet_address, COALESCE(o.public_key, ''),
	o.verification_status, COALESCE(o.logo_url, ''), COALESCE(o.website, ''), COALESCE(o.contact_email, ''),
	o.metadata, COALESCE(o.created_by, ''), o.created_at, o.updated_at`

// OrganizationByWallet finds the organization owning a wallet, matching
// the primary address or any registered secondary wallet.
func (s *PGStore) OrganizationByWallet(ctx context.Context, wallet string) (*model.Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM organizations o
		WHERE o.wallet_address = $1
		   OR o.id = (SELECT organization_id FROM organization_wallets WHERE wallet_address = $1)
		LIMIT 1`, wallet)
	return scanPGOrg(row)
}

// OrganizationByPhone finds a verified organization whose metadata
// contains the phone number.
func (s *PGStore) OrganizationByPhone(ctx context.Context, phone string) (*model.Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+orgColumns+`
		FROM organizations o
		WHERE o.verification_status = 'verified' AND o.metadata::text LIKE '%' || $1 || '%'
		LIMIT 1`, phone)
	return scanPGOrg(row)
}

// VerifiedOrganizations returns every verified organization.
func (s *PGStore) VerifiedOrganizations(ctx context.Context) ([]model.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orgColumns+`
		FROM organizations o
		WHERE o.verification_status = 'verified'
		ORDER BY o.name`)
	if err != nil {
		return nil, fmt.Errorf("querying organizations: %w", err)
	}
	defer rows.Close()

	var out []model.Organization
	for rows.Next() {
		org, err := scanPGOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

// InsertOrganization creates a new organization with status pending.
func (s *PGStore) InsertOrganization(ctx context.Context, org *model.Organization) error {
	meta, err := json.Marshal(org.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	now := time.Now().UTC()
	org.Status = model.OrgPending
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO organizations
			(id, name, domain, wallet_address, public_key, verification_status, logo_url, website,
			 contact_email, metadata, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		org.ID, org.Name, org.Domain, org.WalletAddress, org.PublicKey, string(org.Status),
		org.LogoURL, org.Website, org.ContactEmail, string(meta), org.CreatedBy,
		org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting organization: %w", err)
	}
	return nil
}

// RecentMessages returns the most recent verified messages.
func (s *PGStore) RecentMessages(ctx context.Context, limit int) ([]model.VerifiedMessage, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(organization_id::text, ''), message_content, signature, content_hash,
		       sender_address, COALESCE(recipient_address, ''), verification_status,
		       verification_details::text, COALESCE(block_reference, ''), COALESCE(transaction_reference, ''),
		       created_at, COALESCE(verified_at, created_at)
		FROM verified_messages
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []model.VerifiedMessage
	for rows.Next() {
		var m model.VerifiedMessage
		if err := rows.Scan(&m.ID, &m.OrgID, &m.Content, &m.Signature, &m.ContentHash,
			&m.Sender, &m.Recipient, &m.Status, &m.Details, &m.BlockRef, &m.TxRef,
			&m.CreatedAt, &m.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMessage stores a verified message, skipping silently on a
// (signature, content_hash) conflict. Reports whether a row was written.
func (s *PGStore) InsertMessage(ctx context.Context, msg *model.VerifiedMessage) (bool, error) {
	orgID := any(nil)
	if msg.OrgID != "" {
		orgID = msg.OrgID
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO verified_messages
			(id, organization_id, message_content, signature, content_hash, sender_address,
			 recipient_address, verification_status, verification_details, created_at, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (signature, content_hash) DO NOTHING`,
		msg.ID, orgID, msg.Content, msg.Signature, msg.ContentHash, msg.Sender,
		msg.Recipient, string(msg.Status), msg.Details, msg.CreatedAt, msg.VerifiedAt)
	if err != nil {
		return false, fmt.Errorf("inserting message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanPGOrg(row pgx.Row) (*model.Organization, error) {
	var o model.Organization
	var meta []byte
	err := row.Scan(&o.ID, &o.Name, &o.Domain, &o.WalletAddress, &o.PublicKey, &o.Status,
		&o.LogoURL, &o.Website, &o.ContactEmail, &meta, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning organization: %w", err)
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &o.Metadata)
	}
	return &o, nil
}
