// Package extract scans free-text message bodies for embedded signature
// tags and separates the signature token from the human-readable content.
package extract

import (
	"regexp"
	"strings"
	"time"
)

// Scheme identifies which signature tag grammar matched.
type Scheme string

const (
	SchemeHex    Scheme = "hex"
	SchemeBase64 Scheme = "base64"
	SchemeWeb3   Scheme = "web3"
	SchemeDID    Scheme = "did"
	SchemeEth    Scheme = "ethereum"
)

// ParsedMessage is the result of one extraction pass. It is ephemeral:
// it exists only for the duration of a verification call and is never
// persisted as-is.
type ParsedMessage struct {
	Raw        string            // original text, untouched
	Content    string            // text with the signature block removed
	Signature  string            // extracted token, "" if no tag matched
	SenderHint string            // DID captured from a [DID:...] tag, if any
	Scheme     Scheme            // which grammar matched, "" if none
	Timestamp  time.Time
	Metadata   map[string]string // phone number, matched block, etc.
}

// HasSignature reports whether a signature tag was found.
func (p *ParsedMessage) HasSignature() bool {
	return p.Signature != ""
}

// pattern pairs a tag regexp with its minimum payload length and scheme.
// Submatch 1 is always the signature payload; DID additionally captures
// the identifier in submatch 1 and the signature in submatch 2.
type pattern struct {
	re     *regexp.Regexp
	scheme Scheme
	minLen int
	prefix string // re-applied to the token after extraction
}

// Patterns are tried in this order; the first match wins. A tag whose
// payload is below the scheme minimum is treated as no match and falls
// through to the next pattern.
var patterns = []pattern{
	{regexp.MustCompile(`\[SIG:([0-9a-fA-F]+)\]`), SchemeHex, 64, ""},
	{regexp.MustCompile(`\[SIGNATURE:([A-Za-z0-9+/=]+)\]`), SchemeBase64, 64, ""},
	{regexp.MustCompile(`\[WEB3SIG:0x([0-9a-fA-F]+)\]`), SchemeWeb3, 128, "0x"},
	{regexp.MustCompile(`\[DID:(did:[a-z0-9]+:[A-Za-z0-9.\-_:]+)#SIG:([0-9a-fA-F]+)\]`), SchemeDID, 64, ""},
	{regexp.MustCompile(`\[ETH:0x([0-9a-fA-F]{130})\]`), SchemeEth, 130, "0x"},
}

var whitespace = regexp.MustCompile(`\s+`)

// Message extracts the first recognized signature tag from raw text.
// It is a pure function: a message with no recognizable tag yields an
// empty Signature and unmodified content.
func Message(raw string) *ParsedMessage {
	parsed := &ParsedMessage{
		Raw:       raw,
		Content:   raw,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]string{},
	}

	for _, p := range patterns {
		m := p.re.FindStringSubmatchIndex(raw)
		if m == nil {
			continue
		}

		token := raw[m[2]:m[3]]
		hint := ""
		if p.scheme == SchemeDID {
			hint = token
			token = raw[m[4]:m[5]]
		}
		if len(token) < p.minLen {
			continue
		}

		block := raw[m[0]:m[1]]
		parsed.Signature = p.prefix + token
		parsed.SenderHint = hint
		parsed.Scheme = p.scheme
		parsed.Content = collapse(raw[:m[0]] + " " + raw[m[1]:])
		parsed.Metadata["matched_block"] = block
		parsed.Metadata["scheme"] = string(p.scheme)
		break
	}

	return parsed
}

// collapse trims the string and folds runs of whitespace left behind by
// tag removal into single spaces.
func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
