// Package envelope implements the byte-level framing of sealed messages
// and the versioned text form of exported keys.
//
// A framed envelope is laid out as (big endian):
//
//	version(1) | suite(1) | encLen(2) | enc | nonceLen(1) | nonce |
//	tagLen(1) | tag | ctLen(4) | ciphertext
//
// The prefix up to and including the nonce is the associated data that the
// AEAD authenticates, see [AssociatedData].
package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// Version is the current envelope framing version.
const Version = 1

// Suite bytes understood by this framing version.
const (
	// SuiteX25519 is DHKEM(X25519) + HKDF-SHA-512 + AES-256-GCM.
	SuiteX25519 uint8 = 1
	// SuiteMLKEM768 is ML-KEM-768 + HKDF-SHA-512 + AES-256-GCM.
	SuiteMLKEM768 uint8 = 2
)

// KnownSuite reports whether suite is a suite byte Parse accepts.
func KnownSuite(suite uint8) bool {
	return suite == SuiteX25519 || suite == SuiteMLKEM768
}

// ErrTrailingData is returned by Parse when bytes follow the ciphertext.
var ErrTrailingData = fmt.Errorf("%w: trailing bytes after ciphertext", sealerr.ErrTruncatedData)

// ErrFieldTooLarge is returned by Frame when a field exceeds its length prefix.
var ErrFieldTooLarge = errors.New("envelope field too large")

// Envelope is the complete cryptographic payload of one message.
type Envelope struct {
	// Version is the framing version. Frame writes [Version] when zero.
	Version uint8
	// Suite identifies the KEM/KDF/AEAD combination.
	Suite uint8
	// EncapsulatedKey is the KEM ciphertext (an ephemeral public key for
	// X25519, an ML-KEM ciphertext for ML-KEM-768).
	EncapsulatedKey []byte
	// Nonce is the AEAD nonce.
	Nonce []byte
	// Ciphertext is the encrypted payload without the tag.
	Ciphertext []byte
	// Tag is the AEAD authentication tag.
	Tag []byte
}

// AssociatedData returns the header bytes authenticated by the AEAD:
// version, suite, and the length-prefixed encapsulated key and nonce,
// exactly as they appear at the start of a framed envelope.
func AssociatedData(version, suite uint8, enc, nonce []byte) ([]byte, error) {
	if len(enc) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: encapsulated key is %d bytes", ErrFieldTooLarge, len(enc))
	}
	if len(nonce) > math.MaxUint8 {
		return nil, fmt.Errorf("%w: nonce is %d bytes", ErrFieldTooLarge, len(nonce))
	}

	out := make([]byte, 0, 5+len(enc)+len(nonce))
	out = append(out, version, suite)
	out = binary.BigEndian.AppendUint16(out, uint16(len(enc)))
	out = append(out, enc...)
	out = append(out, byte(len(nonce)))
	out = append(out, nonce...)
	return out, nil
}

// Frame serializes an envelope.
func Frame(env *Envelope) ([]byte, error) {
	version := env.Version
	if version == 0 {
		version = Version
	}

	header, err := AssociatedData(version, env.Suite, env.EncapsulatedKey, env.Nonce)
	if err != nil {
		return nil, err
	}
	if len(env.Tag) > math.MaxUint8 {
		return nil, fmt.Errorf("%w: tag is %d bytes", ErrFieldTooLarge, len(env.Tag))
	}
	if uint64(len(env.Ciphertext)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: ciphertext is %d bytes", ErrFieldTooLarge, len(env.Ciphertext))
	}

	out := make([]byte, 0, len(header)+1+len(env.Tag)+4+len(env.Ciphertext))
	out = append(out, header...)
	out = append(out, byte(len(env.Tag)))
	out = append(out, env.Tag...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(env.Ciphertext)))
	out = append(out, env.Ciphertext...)
	return out, nil
}

// Parse deserializes a framed envelope. The returned slices are copies.
func Parse(data []byte) (*Envelope, error) {
	r := reader{buf: data}

	version, err := r.u8("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: envelope version %d", sealerr.ErrUnsupportedVersion, version)
	}

	env := &Envelope{Version: version}
	if env.Suite, err = r.u8("suite"); err != nil {
		return nil, err
	}
	if !KnownSuite(env.Suite) {
		return nil, fmt.Errorf("%w: envelope suite %d", sealerr.ErrUnsupportedVersion, env.Suite)
	}

	encLen, err := r.u16("encapsulated key length")
	if err != nil {
		return nil, err
	}
	if env.EncapsulatedKey, err = r.next("encapsulated key", int(encLen)); err != nil {
		return nil, err
	}

	nonceLen, err := r.u8("nonce length")
	if err != nil {
		return nil, err
	}
	if env.Nonce, err = r.next("nonce", int(nonceLen)); err != nil {
		return nil, err
	}

	tagLen, err := r.u8("tag length")
	if err != nil {
		return nil, err
	}
	if env.Tag, err = r.next("tag", int(tagLen)); err != nil {
		return nil, err
	}

	ctLen, err := r.u32("ciphertext length")
	if err != nil {
		return nil, err
	}
	if uint64(ctLen) > uint64(r.remaining()) {
		return nil, &sealerr.TruncatedDataError{Field: "ciphertext", Need: int(min(uint64(ctLen), math.MaxInt32)), Have: r.remaining()}
	}
	if env.Ciphertext, err = r.next("ciphertext", int(ctLen)); err != nil {
		return nil, err
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTrailingData, r.remaining())
	}

	return env, nil
}

// reader consumes a byte slice, reporting short reads as TruncatedDataError.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) next(field string, n int) ([]byte, error) {
	if n > r.remaining() {
		return nil, &sealerr.TruncatedDataError{Field: field, Need: n, Have: r.remaining()}
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

func (r *reader) u8(field string) (byte, error) {
	b, err := r.next(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16(field string) (uint16, error) {
	b, err := r.next(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32(field string) (uint32, error) {
	b, err := r.next(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
