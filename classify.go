package qrseal

import (
	"strings"

	"github.com/vaultsandbox/qrseal/internal/chunk"
	"github.com/vaultsandbox/qrseal/internal/envelope"
)

// TextKind is what a scanned text appears to contain.
type TextKind int

const (
	// TextUnknown is text that carries none of the known prefixes.
	TextUnknown TextKind = iota
	// TextPublicKey is a public key text, prefixed "QSPK:".
	TextPublicKey
	// TextSecretKey is a secret key text, prefixed "QSSK:".
	TextSecretKey
	// TextChunk is one chunk of a sealed message, prefixed "QSMC:".
	TextChunk
)

// String returns the kind name.
func (k TextKind) String() string {
	switch k {
	case TextPublicKey:
		return "public key"
	case TextSecretKey:
		return "secret key"
	case TextChunk:
		return "message chunk"
	default:
		return "unknown"
	}
}

// Classify inspects the prefix of a scanned text. It does not validate the
// body; importing or scanning the text does.
func Classify(text string) TextKind {
	text = strings.ToUpper(strings.Trim(text, "\r\n\t"))
	switch {
	case strings.HasPrefix(text, envelope.PublicKeyPrefix):
		return TextPublicKey
	case strings.HasPrefix(text, envelope.SecretKeyPrefix):
		return TextSecretKey
	case strings.HasPrefix(text, chunk.TextPrefix):
		return TextChunk
	default:
		return TextUnknown
	}
}
