package extract

import "fmt"

// Compose embeds a signature into message text using the tag grammar for
// the given scheme. It is the inverse of Message for round-tripping: the
// extractor applied to the composed text recovers the original content
// and a token of the expected shape.
func Compose(content, signature string, scheme Scheme) string {
	switch scheme {
	case SchemeBase64:
		return fmt.Sprintf("%s [SIGNATURE:%s]", content, signature)
	case SchemeWeb3:
		return fmt.Sprintf("%s [WEB3SIG:%s]", content, ensure0x(signature))
	case SchemeDID:
		// DID composition needs a sender identifier; use ComposeDID.
		return fmt.Sprintf("%s [SIG:%s]", content, strip0x(signature))
	case SchemeEth:
		return fmt.Sprintf("%s [ETH:%s]", content, ensure0x(signature))
	default:
		return fmt.Sprintf("%s [SIG:%s]", content, strip0x(signature))
	}
}

// ComposeDID embeds both a DID sender hint and a hex signature.
func ComposeDID(content, did, signature string) string {
	return fmt.Sprintf("%s [DID:%s#SIG:%s]", content, did, strip0x(signature))
}

func ensure0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}

func strip0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
