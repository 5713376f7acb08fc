package crypto

import (
	"fmt"
	"strings"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/vaultsandbox/qrseal/internal/envelope"
)

// Suite identifies a KEM/KDF/AEAD combination. Its value is the suite byte
// written into envelopes and key texts.
type Suite uint8

const (
	// SuiteX25519 is DHKEM(X25519, HKDF-SHA256) + HKDF-SHA-512 + AES-256-GCM.
	// Its 32-byte keys fit comfortably in a single QR code.
	SuiteX25519 = Suite(envelope.SuiteX25519)

	// SuiteMLKEM768 is ML-KEM-768 + HKDF-SHA-512 + AES-256-GCM.
	SuiteMLKEM768 = Suite(envelope.SuiteMLKEM768)
)

// DefaultSuite is used when no suite is configured.
const DefaultSuite = SuiteX25519

// Suites lists every supported suite.
func Suites() []Suite {
	return []Suite{SuiteX25519, SuiteMLKEM768}
}

// String returns the canonical ciphersuite string.
func (s Suite) String() string {
	switch s {
	case SuiteX25519:
		return "X25519:HKDF-SHA-512:AES-256-GCM"
	case SuiteMLKEM768:
		return "ML-KEM-768:HKDF-SHA-512:AES-256-GCM"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ShortName returns the configuration name of the suite.
func (s Suite) ShortName() string {
	switch s {
	case SuiteX25519:
		return "x25519"
	case SuiteMLKEM768:
		return "mlkem768"
	default:
		return ""
	}
}

// Valid reports whether s is a supported suite.
func (s Suite) Valid() bool {
	return s == SuiteX25519 || s == SuiteMLKEM768
}

// Scheme returns the KEM scheme of the suite.
func (s Suite) Scheme() (kem.Scheme, error) {
	switch s {
	case SuiteX25519:
		return hpke.KEM_X25519_HKDF_SHA256.Scheme(), nil
	case SuiteMLKEM768:
		return mlkem768.Scheme(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSuite, uint8(s))
	}
}

// ParseSuite accepts a short name ("x25519", "mlkem768") or a canonical
// ciphersuite string.
func ParseSuite(name string) (Suite, error) {
	name = strings.TrimSpace(name)
	for _, s := range Suites() {
		if strings.EqualFold(name, s.ShortName()) || name == s.String() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSuite, name)
}
