// Package qr encodes and decodes the signed-message QR payload format.
package qr

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload is the JSON object carried in a signed-message QR code.
// Message, Signature and Sender are required; the remaining fields are
// recognized but passed through to verification details un-validated.
type Payload struct {
	Message          string `json:"message"`
	Signature        string `json:"signature"`
	Sender           string `json:"sender"`
	OrganizationName string `json:"organizationName,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	Version          string `json:"version,omitempty"`
}

// Parse decodes and validates a QR payload.
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding QR payload: %w", err)
	}
	if strings.TrimSpace(p.Message) == "" {
		return nil, fmt.Errorf("QR payload missing message")
	}
	if strings.TrimSpace(p.Signature) == "" {
		return nil, fmt.Errorf("QR payload missing signature")
	}
	if strings.TrimSpace(p.Sender) == "" {
		return nil, fmt.Errorf("QR payload missing sender")
	}
	return &p, nil
}

// Compose builds a QR payload for a signed message.
func Compose(message, signature, sender, orgName string) ([]byte, error) {
	p := Payload{
		Message:          message,
		Signature:        signature,
		Sender:           sender,
		OrganizationName: orgName,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Version:          "1",
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding QR payload: %w", err)
	}
	return data, nil
}
