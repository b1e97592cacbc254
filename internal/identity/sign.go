package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignContent produces a detached Ed25519 signature over the UTF-8 bytes
// of the message content, hex-encoded. An Ed25519 signature is 64 bytes,
// so the token is always 128 hex characters — the exact shape the
// [WEB3SIG:] tag grammar and the hosted format check expect.
func SignContent(privateKey ed25519.PrivateKey, content string) string {
	sig := ed25519.Sign(privateKey, []byte(content))
	return hex.EncodeToString(sig)
}

// VerifyContent checks a hex-encoded detached Ed25519 signature over the
// message content. The token may carry a 0x prefix and mixed case.
func VerifyContent(publicKey ed25519.PublicKey, content, hexSig string) (bool, error) {
	s := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(hexSig, "0x"), "0X"))
	raw, err := hex.DecodeString(s)
	if err != nil {
		return false, fmt.Errorf("invalid hex signature: %w", err)
	}
	if len(raw) != ed25519.SignatureSize {
		return false, fmt.Errorf("signature is %d bytes, want %d", len(raw), ed25519.SignatureSize)
	}
	return ed25519.Verify(publicKey, []byte(content), raw), nil
}
