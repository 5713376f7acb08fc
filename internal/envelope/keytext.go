package envelope

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vaultsandbox/qrseal/internal/base45"
	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// KeyVersion is the current version of the key text encoding.
const KeyVersion = 1

// KeyKind distinguishes public from secret key texts.
type KeyKind int

const (
	// KindPublicKey marks a shareable public key.
	KindPublicKey KeyKind = iota + 1
	// KindSecretKey marks a secret key transferred between the owner's devices.
	KindSecretKey
)

// Text prefixes. Every prefix is distinct from the chunk prefix so that a
// scanned text is never ambiguous.
const (
	PublicKeyPrefix = "QSPK:"
	SecretKeyPrefix = "QSSK:"
)

// keyChecksumSize is the size of the trailing checksum in a key record.
const keyChecksumSize = 4

// EncodedKey is a decoded key text.
type EncodedKey struct {
	Kind    KeyKind
	Version uint8
	Suite   uint8
	Key     []byte
}

func (k KeyKind) prefix() string {
	switch k {
	case KindPublicKey:
		return PublicKeyPrefix
	case KindSecretKey:
		return SecretKeyPrefix
	default:
		return ""
	}
}

// String returns a human readable kind name.
func (k KeyKind) String() string {
	switch k {
	case KindPublicKey:
		return "public key"
	case KindSecretKey:
		return "secret key"
	default:
		return "unknown"
	}
}

// EncodeKey renders key material as text:
//
//	prefix || base45(version(1) | suite(1) | key | checksum(4))
//
// The checksum is the low 32 bits of xxHash64 over the preceding bytes.
func EncodeKey(kind KeyKind, suite uint8, key []byte) (string, error) {
	prefix := kind.prefix()
	if prefix == "" {
		return "", fmt.Errorf("unknown key kind %d", kind)
	}

	record := make([]byte, 0, 2+len(key)+keyChecksumSize)
	record = append(record, KeyVersion, suite)
	record = append(record, key...)

	return prefix + base45.Encode(appendChecksum(record)), nil
}

func appendChecksum(record []byte) []byte {
	return binary.BigEndian.AppendUint32(record, uint32(xxhash.Sum64(record)))
}

// DecodeKey parses a key text produced by EncodeKey. Lowercase input is
// accepted and surrounding line breaks are dropped; spaces are significant
// Base45 characters and are kept. All failures wrap ErrMalformedKey; key
// length is validated by the caller, which knows the suite's key sizes.
func DecodeKey(text string) (*EncodedKey, error) {
	text = strings.ToUpper(strings.Trim(text, "\r\n\t"))

	var kind KeyKind
	switch {
	case strings.HasPrefix(text, PublicKeyPrefix):
		kind = KindPublicKey
	case strings.HasPrefix(text, SecretKeyPrefix):
		kind = KindSecretKey
	default:
		return nil, fmt.Errorf("%w: unrecognized prefix", sealerr.ErrMalformedKey)
	}

	record, err := base45.Decode(text[len(kind.prefix()):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sealerr.ErrMalformedKey, err)
	}
	if len(record) < 2+keyChecksumSize {
		return nil, fmt.Errorf("%w: record is %d bytes", sealerr.ErrMalformedKey, len(record))
	}

	body := record[:len(record)-keyChecksumSize]
	want := binary.BigEndian.Uint32(record[len(body):])
	if got := uint32(xxhash.Sum64(body)); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", sealerr.ErrMalformedKey)
	}

	if body[0] != KeyVersion {
		return nil, fmt.Errorf("%w: unsupported key version %d", sealerr.ErrMalformedKey, body[0])
	}

	key := make([]byte, len(body)-2)
	copy(key, body[2:])

	return &EncodedKey{
		Kind:    kind,
		Version: body[0],
		Suite:   body[1],
		Key:     key,
	}, nil
}
