package crypto

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// randReader is the random source used for key generation and encryption.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

// readRandom fills b from the secure random source.
func readRandom(b []byte) error {
	r := randReader
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("%w: %v", sealerr.ErrEntropy, err)
	}
	return nil
}

// Keypair represents a KEM keypair of one suite.
type Keypair struct {
	// Suite is the cipher suite the keys belong to.
	Suite Suite
	// PublicKey is the raw KEM public key bytes.
	PublicKey []byte
	// SecretKey is the raw KEM secret key bytes.
	SecretKey []byte
	// Seed is the entropy the keypair was derived from. It is empty for
	// keypairs reconstructed from a bare secret key.
	Seed []byte
}

// GenerateKeypair creates a new keypair from fresh entropy.
func GenerateKeypair(suite Suite) (*Keypair, error) {
	seed := make([]byte, SeedEntropySize)
	if err := readRandom(seed); err != nil {
		return nil, err
	}
	return KeypairFromSeed(suite, seed)
}

// KeypairFromSeed deterministically derives a keypair from entropy.
// The entropy is expanded with HKDF-SHA-512 to the suite's KEM seed size,
// so the same entropy yields unrelated keys for different suites.
func KeypairFromSeed(suite Suite, seed []byte) (*Keypair, error) {
	if len(seed) != SeedEntropySize {
		return nil, fmt.Errorf("%w: seed is %d bytes, want %d", sealerr.ErrKeyFormat, len(seed), SeedEntropySize)
	}

	scheme, err := suite.Scheme()
	if err != nil {
		return nil, err
	}

	info := append([]byte(KeygenContext), byte(suite))
	kemSeed, err := DeriveKey(seed, nil, info, scheme.SeedSize())
	if err != nil {
		return nil, err
	}
	defer zeroBytes(kemSeed)

	pub, priv := scheme.DeriveKeyPair(kemSeed)

	// MarshalBinary never fails for keys from DeriveKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{
		Suite:     suite,
		PublicKey: pubBytes,
		SecretKey: privBytes,
		Seed:      bytes.Clone(seed),
	}, nil
}

// KeypairFromSecretKey reconstructs a keypair from the secret key.
// The public key is derived from the secret key.
func KeypairFromSecretKey(suite Suite, secretKey []byte) (*Keypair, error) {
	publicKey, err := DerivePublicKey(suite, secretKey)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		Suite:     suite,
		PublicKey: publicKey,
		SecretKey: bytes.Clone(secretKey),
	}, nil
}

// NewKeypairFromBytes creates a keypair from raw bytes, checking that the
// public key belongs to the secret key.
func NewKeypairFromBytes(suite Suite, secretKey, publicKey []byte) (*Keypair, error) {
	kp, err := KeypairFromSecretKey(suite, secretKey)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(kp.PublicKey, publicKey) {
		return nil, ErrKeyMismatch
	}
	return kp, nil
}

// ValidateKeypair validates that a keypair has the correct structure and sizes.
// Returns true if all validations pass, false otherwise.
func ValidateKeypair(keypair *Keypair) bool {
	if keypair == nil {
		return false
	}

	if keypair.PublicKey == nil || keypair.SecretKey == nil {
		return false
	}

	derived, err := DerivePublicKey(keypair.Suite, keypair.SecretKey)
	if err != nil {
		return false
	}

	return bytes.Equal(derived, keypair.PublicKey)
}

// DerivePublicKey extracts the public key from a secret key.
func DerivePublicKey(suite Suite, secretKey []byte) ([]byte, error) {
	scheme, err := suite.Scheme()
	if err != nil {
		return nil, err
	}
	if len(secretKey) != scheme.PrivateKeySize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSecretKeySize, len(secretKey), scheme.PrivateKeySize())
	}

	priv, err := scheme.UnmarshalBinaryPrivateKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sealerr.ErrKeyFormat, err)
	}

	return priv.Public().MarshalBinary()
}

// ValidatePublicKey checks that publicKey is a public key of suite that
// Encrypt can seal to. Besides size and encoding, it runs one encapsulation
// with a fixed seed, which rejects X25519 points of small order.
func ValidatePublicKey(suite Suite, publicKey []byte) error {
	scheme, err := suite.Scheme()
	if err != nil {
		return err
	}
	if len(publicKey) != scheme.PublicKeySize() {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidPublicKeySize, len(publicKey), scheme.PublicKeySize())
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", sealerr.ErrKeyFormat, err)
	}

	_, sharedSecret, err := scheme.EncapsulateDeterministically(pub, make([]byte, scheme.EncapsulationSeedSize()))
	if err != nil {
		return fmt.Errorf("%w: encapsulate: %v", sealerr.ErrKeyFormat, err)
	}
	zeroBytes(sharedSecret)
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
