// Package crypto is the envelope engine of qrseal: keypair generation and
// authenticated hybrid encryption of short messages.
//
// # Algorithm Suites
//
// Every envelope and key text carries a one-byte suite identifier:
//
//   - [SuiteX25519]: DHKEM(X25519, HKDF-SHA256) from HPKE (RFC 9180).
//     32-byte public keys and KEM ciphertexts keep single-QR messages small.
//
//   - [SuiteMLKEM768]: ML-KEM-768 (NIST FIPS 203), a post-quantum KEM.
//     Keys and ciphertexts are over a kilobyte and usually span chunks.
//
// Both suites derive the message key with HKDF-SHA-512 (RFC 5869) and
// encrypt with AES-256-GCM.
//
// # Security Model
//
//   - Confidentiality: only the holder of the secret key can decrypt.
//   - Integrity: the GCM tag covers the ciphertext and, as associated data,
//     the framed header (version, suite, encapsulated key, nonce).
//   - No partial plaintext: [Decrypt] releases nothing unless the tag
//     verifies, and reports every verification failure as the same
//     authentication error.
//   - Freshness: each [Encrypt] call draws a new encapsulation seed and a new
//     nonce from the secure random source.
//
// # Key Management
//
// [GenerateKeypair] draws [SeedEntropySize] bytes of entropy and derives the
// keypair from it with [KeypairFromSeed]; keeping the entropy allows
// mnemonic backups. [KeypairFromSecretKey] and [DerivePublicKey] rebuild
// the public half from a secret key.
//
// Keep secret keys secure. They should never be logged, transmitted in
// plaintext, or stored in version control.
package crypto
