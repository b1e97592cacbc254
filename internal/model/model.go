// Package model defines the records shared by the local mirror, the
// backend client, and the self-hosted verification server.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// OrgStatus is the verification lifecycle state of an organization.
// Organizations start pending and are moved to verified or rejected by an
// administrative review outside this codebase.
type OrgStatus string

const (
	OrgPending  OrgStatus = "pending"
	OrgVerified OrgStatus = "verified"
	OrgRejected OrgStatus = "rejected"
)

// Method is how a verification was initiated.
type Method string

const (
	MethodSMS    Method = "sms"
	MethodQR     Method = "qr"
	MethodManual Method = "manual"
)

// MessageStatus is the verification state of a message record.
type MessageStatus string

const (
	MessagePending  MessageStatus = "pending"
	MessageVerified MessageStatus = "verified"
	MessageFailed   MessageStatus = "failed"
)

// Organization is the identity record for a trusted message sender.
// WalletAddress is unique across organizations.
type Organization struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Domain        string            `json:"domain,omitempty"`
	WalletAddress string            `json:"wallet_address"`
	PublicKey     string            `json:"public_key,omitempty"`
	Status        OrgStatus         `json:"verification_status"`
	LogoURL       string            `json:"logo_url,omitempty"`
	Website       string            `json:"website,omitempty"`
	ContactEmail  string            `json:"contact_email,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedBy     string            `json:"created_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// VerifiedMessage records one successful verification outcome.
// The pair (Signature, ContentHash) is unique: re-verifying the same
// signed content must not create a second row.
type VerifiedMessage struct {
	ID          string        `json:"id"`
	OrgID       string        `json:"organization_id,omitempty"`
	Content     string        `json:"message_content"`
	Signature   string        `json:"signature"`
	ContentHash string        `json:"content_hash"`
	Sender      string        `json:"sender_address"`
	Recipient   string        `json:"recipient_address,omitempty"`
	Status      MessageStatus `json:"verification_status"`
	Details     string        `json:"verification_details,omitempty"` // JSON blob
	BlockRef    string        `json:"block_reference,omitempty"`
	TxRef       string        `json:"transaction_reference,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	VerifiedAt  time.Time     `json:"verified_at,omitempty"`
}

// VerificationAttempt is an append-only audit trail entry. One is written
// for every attempt, successful or not; the client never mutates or
// deletes them.
type VerificationAttempt struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Method      Method    `json:"method"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Details     string    `json:"details,omitempty"` // JSON blob
	ContentHash string    `json:"content_hash,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContentHash returns the SHA-256 hex digest of message content, the
// fingerprint used by the (signature, content-hash) uniqueness constraint.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
