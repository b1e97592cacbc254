package verify

import (
	"encoding/json"
	"time"

	"github.com/tusharbhayani/SigText/internal/model"
)

// Details is the structured verification detail blob stored with each
// VerifiedMessage and attempt. Exactly one of SMS, QR, Manual is set,
// matching Method; fields with no dedicated slot go in Extra.
type Details struct {
	Method          model.Method   `json:"method"`
	Check           string         `json:"check"` // remote, mock, format-only, ed25519
	SignatureLength int            `json:"signature_length"`
	ContentHash     string         `json:"content_hash"`
	VerifiedAt      time.Time      `json:"verified_at"`
	SMS             *SMSDetails    `json:"sms,omitempty"`
	QR              *QRDetails     `json:"qr,omitempty"`
	Manual          *ManualDetails `json:"manual,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// SMSDetails describes a verification initiated from a text message.
type SMSDetails struct {
	Phone        string `json:"phone,omitempty"`
	MatchedBlock string `json:"matched_block,omitempty"`
	Scheme       string `json:"scheme,omitempty"`
}

// QRDetails describes a verification initiated from a scanned QR code.
// The payload fields are passed through un-validated.
type QRDetails struct {
	OrganizationName string `json:"organization_name,omitempty"`
	PayloadTimestamp string `json:"payload_timestamp,omitempty"`
	PayloadVersion   string `json:"payload_version,omitempty"`
}

// ManualDetails describes a manually entered verification.
type ManualDetails struct {
	EnteredBy string `json:"entered_by,omitempty"`
}

// JSON renders the details blob for storage.
func (d Details) JSON() string {
	data, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(data)
}
