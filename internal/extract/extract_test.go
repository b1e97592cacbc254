package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hex64  = "a1b2c3d4e5f6789012345678901234567890abcdef1234567890abcdef123456"
	hex128 = hex64 + hex64
)

// hex130 is a full Ethereum-style signature (r||s||v).
var hex130 = hex128 + "1b"

func TestMessage_HexTag(t *testing.T) {
	p := Message("Your OTP is 4821 [SIG:" + hex64 + "] do not share it")

	require.True(t, p.HasSignature())
	assert.Equal(t, hex64, p.Signature)
	assert.Equal(t, SchemeHex, p.Scheme)
	assert.Equal(t, "Your OTP is 4821 do not share it", p.Content)
	assert.Equal(t, "[SIG:"+hex64+"]", p.Metadata["matched_block"])
}

func TestMessage_Base64Tag(t *testing.T) {
	sig := strings.Repeat("QWJj", 16) + "==" // 66 chars
	p := Message("Payment received [SIGNATURE:" + sig + "]")

	require.True(t, p.HasSignature())
	assert.Equal(t, sig, p.Signature)
	assert.Equal(t, SchemeBase64, p.Scheme)
	assert.Equal(t, "Payment received", p.Content)
}

func TestMessage_Web3Tag(t *testing.T) {
	p := Message("[WEB3SIG:0x" + hex128 + "] Transfer complete")

	require.True(t, p.HasSignature())
	assert.Equal(t, "0x"+hex128, p.Signature, "web3 token is re-prefixed with 0x")
	assert.Equal(t, SchemeWeb3, p.Scheme)
	assert.Equal(t, "Transfer complete", p.Content)
}

func TestMessage_DIDTag(t *testing.T) {
	p := Message("Hello from Acme [DID:did:web:acme.example#SIG:" + hex64 + "]")

	require.True(t, p.HasSignature())
	assert.Equal(t, hex64, p.Signature)
	assert.Equal(t, "did:web:acme.example", p.SenderHint)
	assert.Equal(t, SchemeDID, p.Scheme)
	assert.Equal(t, "Hello from Acme", p.Content)
}

func TestMessage_EthTag(t *testing.T) {
	p := Message("Invoice attached [ETH:0x" + hex130 + "]")

	require.True(t, p.HasSignature())
	assert.Equal(t, "0x"+hex130, p.Signature)
	assert.Equal(t, SchemeEth, p.Scheme)
	assert.Equal(t, "Invoice attached", p.Content)
}

func TestMessage_NoTag(t *testing.T) {
	raw := "Just a plain message,  nothing else."
	p := Message(raw)

	assert.False(t, p.HasSignature())
	assert.Empty(t, p.Signature)
	assert.Equal(t, raw, p.Content, "content is untouched when no tag matches")
	assert.Equal(t, Scheme(""), p.Scheme)
}

func TestMessage_TooShortFallsThrough(t *testing.T) {
	// 10 hex chars fail the [SIG:] minimum; nothing else matches.
	p := Message("Short sig [SIG:a1b2c3d4e5]")

	assert.False(t, p.HasSignature())
	assert.Equal(t, "Short sig [SIG:a1b2c3d4e5]", p.Content)
}

func TestMessage_Web3BelowMinimum(t *testing.T) {
	// 64 hex chars under the web3 minimum of 128; the payload without
	// its 0x prefix is not extracted by any other pattern either.
	p := Message("x [WEB3SIG:0x" + hex64 + "]")
	assert.False(t, p.HasSignature())
}

func TestMessage_PriorityOrder(t *testing.T) {
	// Both a hex and an ethereum tag present: the hex tag wins because
	// patterns are tried in fixed priority order.
	raw := "msg [SIG:" + hex64 + "] [ETH:0x" + hex130 + "]"
	p := Message(raw)

	require.True(t, p.HasSignature())
	assert.Equal(t, SchemeHex, p.Scheme)
	assert.Equal(t, hex64, p.Signature)
	assert.NotContains(t, p.Content, "[SIG:")
	assert.Contains(t, p.Content, "[ETH:", "only the matched block is stripped")
}

func TestMessage_TagMidText(t *testing.T) {
	p := Message("before [SIG:" + hex64 + "] after")
	assert.Equal(t, "before after", p.Content, "whitespace around the removed block collapses")
}

func TestRoundTrip(t *testing.T) {
	content := "Quarterly statement is ready"

	cases := []struct {
		scheme Scheme
		sig    string
		want   string
	}{
		{SchemeHex, hex64, hex64},
		{SchemeBase64, strings.Repeat("QWJj", 16), strings.Repeat("QWJj", 16)},
		{SchemeWeb3, hex128, "0x" + hex128},
		{SchemeEth, hex130, "0x" + hex130},
	}

	for _, tc := range cases {
		t.Run(string(tc.scheme), func(t *testing.T) {
			p := Message(Compose(content, tc.sig, tc.scheme))
			require.True(t, p.HasSignature())
			assert.Equal(t, content, p.Content)
			assert.Equal(t, tc.want, p.Signature)
			assert.Equal(t, tc.scheme, p.Scheme)
		})
	}
}

func TestRoundTrip_DID(t *testing.T) {
	p := Message(ComposeDID("Board meeting at 3pm", "did:web:acme.example", hex64))
	require.True(t, p.HasSignature())
	assert.Equal(t, "Board meeting at 3pm", p.Content)
	assert.Equal(t, "did:web:acme.example", p.SenderHint)
	assert.Equal(t, hex64, p.Signature)
}
