package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultsandbox/qrseal/internal/envelope"
	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

func mustKeypair(t *testing.T, suite Suite) *Keypair {
	t.Helper()
	kp, err := GenerateKeypair(suite)
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	return kp
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	payloads := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"hello", []byte("hello")},
		{"unicode", []byte("Grüße, 世界 🔐")},
		{"binary", []byte{0x00, 0x01, 0xfe, 0xff}},
		{"large", bytes.Repeat([]byte("abcdefgh"), 4096)},
	}

	for _, suite := range Suites() {
		kp := mustKeypair(t, suite)

		for _, p := range payloads {
			t.Run(suite.ShortName()+"/"+p.name, func(t *testing.T) {
				env, err := Encrypt(suite, kp.PublicKey, p.plaintext)
				if err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}

				if env.Suite != uint8(suite) {
					t.Errorf("Suite = %d, want %d", env.Suite, suite)
				}
				if len(env.Ciphertext) != len(p.plaintext) {
					t.Errorf("Ciphertext length = %d, want %d", len(env.Ciphertext), len(p.plaintext))
				}

				// Round trip through the wire frame as a receiver would
				framed, err := envelope.Frame(env)
				if err != nil {
					t.Fatalf("Frame() error = %v", err)
				}
				parsed, err := envelope.Parse(framed)
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}

				plaintext, err := Decrypt(parsed, kp.SecretKey)
				if err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}

				if !bytes.Equal(plaintext, p.plaintext) {
					t.Errorf("plaintext mismatch: got %d bytes, want %d", len(plaintext), len(p.plaintext))
				}
			})
		}
	}
}

func TestEncrypt_FreshPerCall(t *testing.T) {
	kp := mustKeypair(t, SuiteX25519)
	plaintext := []byte("same message")

	env1, err := Encrypt(SuiteX25519, kp.PublicKey, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	env2, err := Encrypt(SuiteX25519, kp.PublicKey, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(env1.Nonce, env2.Nonce) {
		t.Error("two encryptions reused a nonce")
	}
	if bytes.Equal(env1.EncapsulatedKey, env2.EncapsulatedKey) {
		t.Error("two encryptions reused an encapsulated key")
	}
	if bytes.Equal(env1.Ciphertext, env2.Ciphertext) {
		t.Error("two encryptions produced the same ciphertext")
	}
}

func TestDecrypt_TamperedFrame(t *testing.T) {
	for _, suite := range Suites() {
		t.Run(suite.ShortName(), func(t *testing.T) {
			kp := mustKeypair(t, suite)

			env, err := Encrypt(suite, kp.PublicKey, []byte("attack at dawn"))
			if err != nil {
				t.Fatal(err)
			}
			framed, err := envelope.Frame(env)
			if err != nil {
				t.Fatal(err)
			}

			// Byte 1 is the suite; flipping it changes the scheme and is
			// covered separately. Every other byte must either fail to parse
			// or fail to authenticate.
			for i := 2; i < len(framed); i++ {
				for bit := 0; bit < 8; bit++ {
					tampered := bytes.Clone(framed)
					tampered[i] ^= 1 << bit

					parsed, err := envelope.Parse(tampered)
					if err != nil {
						continue
					}

					plaintext, err := Decrypt(parsed, kp.SecretKey)
					if !errors.Is(err, sealerr.ErrAuthentication) {
						t.Fatalf("byte %d bit %d: expected ErrAuthentication, got %v", i, bit, err)
					}
					if plaintext != nil {
						t.Fatalf("byte %d bit %d: plaintext released", i, bit)
					}
				}
			}
		})
	}
}

func TestDecrypt_TamperedFields(t *testing.T) {
	kp := mustKeypair(t, SuiteX25519)

	env, err := Encrypt(SuiteX25519, kp.PublicKey, []byte("sensitive"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		modify func(e *envelope.Envelope)
	}{
		{"ciphertext", func(e *envelope.Envelope) { e.Ciphertext[0] ^= 0x80 }},
		{"tag", func(e *envelope.Envelope) { e.Tag[15] ^= 0x01 }},
		{"nonce", func(e *envelope.Envelope) { e.Nonce[0] ^= 0x01 }},
		{"encapsulated key", func(e *envelope.Envelope) { e.EncapsulatedKey[5] ^= 0x10 }},
		{"short tag", func(e *envelope.Envelope) { e.Tag = e.Tag[:8] }},
		{"short nonce", func(e *envelope.Envelope) { e.Nonce = e.Nonce[:4] }},
		{"short encapsulated key", func(e *envelope.Envelope) { e.EncapsulatedKey = e.EncapsulatedKey[:16] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := &envelope.Envelope{
				Version:         env.Version,
				Suite:           env.Suite,
				EncapsulatedKey: bytes.Clone(env.EncapsulatedKey),
				Nonce:           bytes.Clone(env.Nonce),
				Ciphertext:      bytes.Clone(env.Ciphertext),
				Tag:             bytes.Clone(env.Tag),
			}
			tt.modify(tampered)

			_, err := Decrypt(tampered, kp.SecretKey)
			if !errors.Is(err, sealerr.ErrAuthentication) {
				t.Errorf("expected ErrAuthentication, got %v", err)
			}
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	for _, suite := range Suites() {
		t.Run(suite.ShortName(), func(t *testing.T) {
			recipient := mustKeypair(t, suite)
			other := mustKeypair(t, suite)

			env, err := Encrypt(suite, recipient.PublicKey, []byte("for recipient only"))
			if err != nil {
				t.Fatal(err)
			}

			_, err = Decrypt(env, other.SecretKey)
			if !errors.Is(err, sealerr.ErrAuthentication) {
				t.Errorf("expected ErrAuthentication, got %v", err)
			}
		})
	}
}

func TestDecrypt_SuiteSwapped(t *testing.T) {
	kp := mustKeypair(t, SuiteX25519)

	env, err := Encrypt(SuiteX25519, kp.PublicKey, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	env.Suite = uint8(SuiteMLKEM768)

	// The X25519 secret key has the wrong size for ML-KEM-768
	_, err = Decrypt(env, kp.SecretKey)
	if !errors.Is(err, sealerr.ErrKeyFormat) {
		t.Errorf("expected ErrKeyFormat, got %v", err)
	}
}

func TestEncrypt_InvalidPublicKey(t *testing.T) {
	tests := []struct {
		name  string
		suite Suite
		key   []byte
	}{
		{"empty", SuiteX25519, nil},
		{"short", SuiteX25519, make([]byte, 31)},
		{"mlkem truncated", SuiteMLKEM768, make([]byte, MLKEMPublicKeySize-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encrypt(tt.suite, tt.key, []byte("hello"))
			if !errors.Is(err, sealerr.ErrKeyFormat) {
				t.Errorf("expected ErrKeyFormat, got %v", err)
			}
		})
	}
}

func TestDecrypt_InvalidSecretKey(t *testing.T) {
	kp := mustKeypair(t, SuiteX25519)

	env, err := Encrypt(SuiteX25519, kp.PublicKey, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(env, kp.SecretKey[:10])
	if !errors.Is(err, sealerr.ErrKeyFormat) {
		t.Errorf("expected ErrKeyFormat, got %v", err)
	}
	if errors.Is(err, sealerr.ErrAuthentication) {
		t.Error("a malformed key must not be reported as an authentication failure")
	}
}

func TestEncrypt_UnsupportedSuite(t *testing.T) {
	_, err := Encrypt(Suite(7), make([]byte, 32), []byte("hello"))
	if !errors.Is(err, sealerr.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecrypt_UnsupportedVersion(t *testing.T) {
	kp := mustKeypair(t, SuiteX25519)

	env, err := Encrypt(SuiteX25519, kp.PublicKey, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	env.Version = 9

	_, err = Decrypt(env, kp.SecretKey)
	if !errors.Is(err, sealerr.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestEncrypt_EntropyFailure(t *testing.T) {
	kp := mustKeypair(t, SuiteX25519)

	restore := SetRandReaderForTesting(bytes.NewReader(nil))
	defer restore()

	_, err := Encrypt(SuiteX25519, kp.PublicKey, []byte("hello"))
	if !errors.Is(err, sealerr.ErrEntropy) {
		t.Errorf("expected ErrEntropy, got %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	secret := []byte("shared secret")
	salt := []byte("salt")
	info := []byte("info")

	key1, err := DeriveKey(secret, salt, info, 32)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("key length = %d, want 32", len(key1))
	}

	key2, err := DeriveKey(secret, salt, info, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("DeriveKey is not deterministic")
	}

	key3, err := DeriveKey(secret, salt, []byte("other info"), 32)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(key1, key3) {
		t.Error("different info produced the same key")
	}

	noSalt, err := DeriveKey(secret, nil, info, 64)
	if err != nil {
		t.Fatal(err)
	}
	if len(noSalt) != 64 {
		t.Errorf("key length = %d, want 64", len(noSalt))
	}
}

func BenchmarkEncrypt(b *testing.B) {
	plaintext := bytes.Repeat([]byte("x"), 1024)

	for _, suite := range Suites() {
		kp, err := GenerateKeypair(suite)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(suite.ShortName(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Encrypt(suite, kp.PublicKey, plaintext); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
