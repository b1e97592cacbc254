package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tusharbhayani/SigText/internal/model"
)

// ReplaceOrganizations overwrites the entire organizations mirror in one
// transaction. The mirror is a snapshot, not a delta merge: a failed
// transaction leaves the previous snapshot intact.
func (s *Store) ReplaceOrganizations(orgs []model.Organization) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replacing organizations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM organizations"); err != nil {
		return fmt.Errorf("clearing organizations: %w", err)
	}
	for _, o := range orgs {
		_, err := tx.Exec(
			`INSERT INTO organizations
			 (id, name, domain, wallet_address, public_key, verification_status, logo_url, website,
			  contact_email, metadata, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.Name, o.Domain, o.WalletAddress, o.PublicKey, string(o.Status),
			o.LogoURL, o.Website, o.ContactEmail, metadataJSON(o.Metadata), o.CreatedBy,
			o.CreatedAt.UTC().Format(time.RFC3339), o.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("inserting organization %s: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

// ReplaceMessages overwrites the verified-messages mirror in one
// transaction.
func (s *Store) ReplaceMessages(msgs []model.VerifiedMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replacing messages: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM verified_messages"); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	for _, m := range msgs {
		_, err := tx.Exec(
			`INSERT INTO verified_messages
			 (id, organization_id, message_content, signature, content_hash, sender_address, recipient_address,
			  verification_status, verification_details, block_reference, transaction_reference, created_at, verified_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(signature, content_hash) DO NOTHING`,
			m.ID, m.OrgID, m.Content, m.Signature, m.ContentHash, m.Sender, m.Recipient,
			string(m.Status), m.Details, m.BlockRef, m.TxRef,
			m.CreatedAt.UTC().Format(time.RFC3339), m.VerifiedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("inserting message %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// Organizations returns all mirrored organizations.
func (s *Store) Organizations() ([]model.Organization, error) {
	rows, err := s.db.Query(
		`SELECT id, name, domain, wallet_address, public_key, verification_status, logo_url, website,
		        contact_email, metadata, created_by, created_at, updated_at
		 FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying organizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// OrganizationByWallet looks up a mirrored organization by its wallet
// address. Returns sql.ErrNoRows wrapped when no row matches.
func (s *Store) OrganizationByWallet(wallet string) (*model.Organization, error) {
	row := s.db.QueryRow(
		`SELECT id, name, domain, wallet_address, public_key, verification_status, logo_url, website,
		        contact_email, metadata, created_by, created_at, updated_at
		 FROM organizations WHERE wallet_address = ?`, wallet)
	o, err := scanOrg(row)
	if err != nil {
		return nil, fmt.Errorf("organization by wallet %s: %w", wallet, err)
	}
	return &o, nil
}

// OrganizationByPhone finds a verified organization whose metadata blob
// contains the given phone number.
func (s *Store) OrganizationByPhone(phone string) (*model.Organization, error) {
	rows, err := s.db.Query(
		`SELECT id, name, domain, wallet_address, public_key, verification_status, logo_url, website,
		        contact_email, metadata, created_by, created_at, updated_at
		 FROM organizations WHERE verification_status = 'verified' AND metadata LIKE ?`,
		"%"+phone+"%")
	if err != nil {
		return nil, fmt.Errorf("organization by phone: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		// LIKE is a coarse prefilter; confirm against the decoded map
		for _, v := range o.Metadata {
			if strings.Contains(v, phone) {
				return &o, nil
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, sql.ErrNoRows
}

// RecentMessages returns the most recently verified messages.
func (s *Store) RecentMessages(limit int) ([]model.VerifiedMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, organization_id, message_content, signature, content_hash, sender_address, recipient_address,
		        verification_status, verification_details, block_reference, transaction_reference, created_at, verified_at
		 FROM verified_messages ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.VerifiedMessage
	for rows.Next() {
		var m model.VerifiedMessage
		var orgID, recipient, details, blockRef, txRef, verifiedAt sql.NullString
		var created string
		if err := rows.Scan(&m.ID, &orgID, &m.Content, &m.Signature, &m.ContentHash, &m.Sender, &recipient,
			&m.Status, &details, &blockRef, &txRef, &created, &verifiedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.OrgID = orgID.String
		m.Recipient = recipient.String
		m.Details = details.String
		m.BlockRef = blockRef.String
		m.TxRef = txRef.String
		m.CreatedAt, _ = time.Parse(time.RFC3339, created)
		m.VerifiedAt, _ = time.Parse(time.RFC3339, verifiedAt.String)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetSyncedAt records the completion time of the last successful sync.
func (s *Store) SetSyncedAt(t time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_state (k, v) VALUES ('synced_at', ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording sync time: %w", err)
	}
	return nil
}

// SyncedAt returns the last successful sync time, zero if never synced.
func (s *Store) SyncedAt() time.Time {
	var v string
	if err := s.db.QueryRow(`SELECT v FROM sync_state WHERE k = 'synced_at'`).Scan(&v); err != nil {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, v)
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrg(row scanner) (model.Organization, error) {
	var o model.Organization
	var domain, pubKey, logo, website, contact, metadata, createdBy sql.NullString
	var created, updated string
	err := row.Scan(&o.ID, &o.Name, &domain, &o.WalletAddress, &pubKey, &o.Status,
		&logo, &website, &contact, &metadata, &createdBy, &created, &updated)
	if err != nil {
		return o, err
	}
	o.Domain = domain.String
	o.PublicKey = pubKey.String
	o.LogoURL = logo.String
	o.Website = website.String
	o.ContactEmail = contact.String
	o.CreatedBy = createdBy.String
	if metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &o.Metadata)
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339, created)
	o.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return o, nil
}
