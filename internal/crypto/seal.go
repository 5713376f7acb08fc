package crypto

import (
	"fmt"

	"github.com/vaultsandbox/qrseal/internal/envelope"
	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// Encrypt seals plaintext to the holder of the secret key matching
// recipientPublicKey.
//
// The encryption process:
//  1. KEM encapsulation against the recipient public key, using a fresh
//     encapsulation seed (a fresh ephemeral keypair for X25519)
//  2. A fresh random AES-GCM nonce
//  3. HKDF-SHA-512 key derivation using the shared secret, the framed
//     header as AAD, and the KEM ciphertext
//  4. AES-256-GCM encryption with the header as AAD; the tag is detached
func Encrypt(suite Suite, recipientPublicKey, plaintext []byte) (*envelope.Envelope, error) {
	scheme, err := suite.Scheme()
	if err != nil {
		return nil, err
	}
	if len(recipientPublicKey) != scheme.PublicKeySize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPublicKeySize, len(recipientPublicKey), scheme.PublicKeySize())
	}

	pubKey, err := scheme.UnmarshalBinaryPublicKey(recipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sealerr.ErrKeyFormat, err)
	}

	// 1. KEM Encapsulation
	encSeed := make([]byte, scheme.EncapsulationSeedSize())
	if err := readRandom(encSeed); err != nil {
		return nil, err
	}
	defer zeroBytes(encSeed)

	ctKem, sharedSecret, err := scheme.EncapsulateDeterministically(pubKey, encSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: encapsulate: %v", sealerr.ErrKeyFormat, err)
	}
	defer zeroBytes(sharedSecret)

	// 2. Nonce
	nonce := make([]byte, AESNonceSize)
	if err := readRandom(nonce); err != nil {
		return nil, err
	}

	// 3. Key Derivation (HKDF-SHA-512)
	aad, err := envelope.AssociatedData(envelope.Version, uint8(suite), ctKem, nonce)
	if err != nil {
		return nil, err
	}

	aesKey, err := deriveKey(sharedSecret, aad, ctKem)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer zeroBytes(aesKey)

	// 4. AES-256-GCM Encryption
	ciphertext, tag, err := sealAESGCM(aesKey, nonce, aad, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return &envelope.Envelope{
		Version:         envelope.Version,
		Suite:           uint8(suite),
		EncapsulatedKey: ctKem,
		Nonce:           nonce,
		Ciphertext:      ciphertext,
		Tag:             tag,
	}, nil
}

// Decrypt opens an envelope with the local secret key.
//
// A malformed secret key yields ErrKeyFormat. Every other failure, whether
// a wrong key, a tampered field, or a malformed KEM ciphertext, yields the
// same ErrAuthentication so callers cannot tell them apart.
func Decrypt(env *envelope.Envelope, secretKey []byte) ([]byte, error) {
	if env.Version != envelope.Version {
		return nil, fmt.Errorf("%w: envelope version %d", sealerr.ErrUnsupportedVersion, env.Version)
	}

	suite := Suite(env.Suite)
	scheme, err := suite.Scheme()
	if err != nil {
		return nil, err
	}

	if len(secretKey) != scheme.PrivateKeySize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSecretKeySize, len(secretKey), scheme.PrivateKeySize())
	}
	privKey, err := scheme.UnmarshalBinaryPrivateKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sealerr.ErrKeyFormat, err)
	}

	if len(env.EncapsulatedKey) != scheme.CiphertextSize() || len(env.Nonce) != AESNonceSize || len(env.Tag) != AESTagSize {
		return nil, sealerr.ErrAuthentication
	}

	// 1. KEM Decapsulation
	sharedSecret, err := scheme.Decapsulate(privKey, env.EncapsulatedKey)
	if err != nil {
		return nil, sealerr.ErrAuthentication
	}
	defer zeroBytes(sharedSecret)

	// 2. Key Derivation (HKDF-SHA-512)
	aad, err := envelope.AssociatedData(env.Version, env.Suite, env.EncapsulatedKey, env.Nonce)
	if err != nil {
		return nil, sealerr.ErrAuthentication
	}

	aesKey, err := deriveKey(sharedSecret, aad, env.EncapsulatedKey)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer zeroBytes(aesKey)

	// 3. Tag verification and AES-256-GCM Decryption
	return openAESGCM(aesKey, env.Nonce, aad, env.Ciphertext, env.Tag)
}
