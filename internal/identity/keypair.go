// Package identity provides Ed25519 key generation, content signing, and
// signature verification for organization message signing.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tusharbhayani/SigText/internal/safefile"
)

// Keypair holds an Ed25519 key pair for an organization.
type Keypair struct {
	Name       string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeypair creates a new Ed25519 key pair for the named organization.
func GenerateKeypair(name string) (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return &Keypair{
		Name:       name,
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// Save writes the keypair to disk as PEM files.
// Creates <dir>/<name>.key (private) and <dir>/<name>.pub (public).
func (kp *Keypair) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating keys directory: %w", err)
	}

	privBlock := &pem.Block{
		Type:  "SIGTEXT ED25519 PRIVATE KEY",
		Bytes: kp.PrivateKey,
	}
	privPath := filepath.Join(dir, kp.Name+".key")
	if err := os.WriteFile(privPath, pem.EncodeToMemory(privBlock), 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	pubBlock := &pem.Block{
		Type:  "SIGTEXT ED25519 PUBLIC KEY",
		Bytes: kp.PublicKey,
	}
	pubPath := filepath.Join(dir, kp.Name+".pub")
	if err := os.WriteFile(pubPath, pem.EncodeToMemory(pubBlock), 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}

// LoadKeypair loads a full keypair (private + public) from disk.
// Key files must not be symlinks and must not exceed 64 KB.
func LoadKeypair(dir, name string) (*Keypair, error) {
	privPath := filepath.Join(dir, name+".key")
	privPEM, err := safefile.ReadFileMax(privPath, 64*1024)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	privBlock, _ := pem.Decode(privPEM)
	if privBlock == nil {
		return nil, fmt.Errorf("invalid PEM in %s", privPath)
	}
	priv := ed25519.PrivateKey(privBlock.Bytes)
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%s: not an Ed25519 private key", privPath)
	}

	pub, err := LoadPublicKey(dir, name)
	if err != nil {
		// Derive public key from private key
		pub = priv.Public().(ed25519.PublicKey)
	}

	return &Keypair{
		Name:       name,
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// LoadPublicKey loads only the public key from disk.
func LoadPublicKey(dir, name string) (ed25519.PublicKey, error) {
	pubPath := filepath.Join(dir, name+".pub")
	pubPEM, err := safefile.ReadFileMax(pubPath, 64*1024)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	pubBlock, _ := pem.Decode(pubPEM)
	if pubBlock == nil {
		return nil, fmt.Errorf("invalid PEM in %s", pubPath)
	}
	return ed25519.PublicKey(pubBlock.Bytes), nil
}

// ParsePublicKey decodes a raw 32-byte Ed25519 public key from the hex or
// base64 string form stored in the organization directory.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	if raw, err := hex.DecodeString(s); err == nil && len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(raw), nil
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil && len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(raw), nil
	}
	return nil, fmt.Errorf("not a 32-byte Ed25519 public key")
}

// EncodePublicKey returns the hex string form used in the organization
// directory's public_key column.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// Fingerprint returns the SHA-256 hex fingerprint of a public key.
func Fingerprint(pub ed25519.PublicKey) string {
	h := sha256.Sum256(pub)
	return hex.EncodeToString(h[:])
}
