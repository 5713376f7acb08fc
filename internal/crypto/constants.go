package crypto

const (
	// HKDFContext is the context string used in message key derivation
	// for domain separation.
	HKDFContext = "qrseal:envelope:v1"

	// KeygenContext is the context string used to expand keypair entropy
	// into a KEM seed.
	KeygenContext = "qrseal:keygen:v1"

	// SeedEntropySize is the size of the entropy a keypair is derived from.
	// It is also the entropy size of a 24-word mnemonic.
	SeedEntropySize = 32

	// X25519PublicKeySize is the size of an X25519 public key in bytes.
	X25519PublicKeySize = 32
	// X25519SecretKeySize is the size of an X25519 secret key in bytes.
	X25519SecretKeySize = 32
	// X25519CiphertextSize is the size of the ephemeral public key that
	// DHKEM(X25519) sends as its ciphertext.
	X25519CiphertextSize = 32

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = 1184
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = 2400
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = 1088
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-768 in bytes.
	MLKEMSharedKeySize = 32

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16
)
