package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

func TestGenerateKeypair(t *testing.T) {
	tests := []struct {
		suite      Suite
		publicSize int
		secretSize int
	}{
		{SuiteX25519, X25519PublicKeySize, X25519SecretKeySize},
		{SuiteMLKEM768, MLKEMPublicKeySize, MLKEMSecretKeySize},
	}

	for _, tt := range tests {
		t.Run(tt.suite.ShortName(), func(t *testing.T) {
			kp, err := GenerateKeypair(tt.suite)
			if err != nil {
				t.Fatalf("GenerateKeypair() error = %v", err)
			}

			if kp.Suite != tt.suite {
				t.Errorf("Suite = %v, want %v", kp.Suite, tt.suite)
			}
			if len(kp.PublicKey) != tt.publicSize {
				t.Errorf("PublicKey size = %d, want %d", len(kp.PublicKey), tt.publicSize)
			}
			if len(kp.SecretKey) != tt.secretSize {
				t.Errorf("SecretKey size = %d, want %d", len(kp.SecretKey), tt.secretSize)
			}
			if len(kp.Seed) != SeedEntropySize {
				t.Errorf("Seed size = %d, want %d", len(kp.Seed), SeedEntropySize)
			}
			if !ValidateKeypair(kp) {
				t.Error("ValidateKeypair() = false for a generated keypair")
			}
		})
	}
}

func TestGenerateKeypair_Uniqueness(t *testing.T) {
	kp1, err := GenerateKeypair(SuiteX25519)
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	kp2, err := GenerateKeypair(SuiteX25519)
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if bytes.Equal(kp1.PublicKey, kp2.PublicKey) {
		t.Error("Generated keypairs have identical public keys")
	}

	if bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
		t.Error("Generated keypairs have identical secret keys")
	}
}

func TestGenerateKeypair_EntropyFailure(t *testing.T) {
	restore := SetRandReaderForTesting(bytes.NewReader([]byte("short")))
	defer restore()

	_, err := GenerateKeypair(SuiteX25519)
	if !errors.Is(err, sealerr.ErrEntropy) {
		t.Errorf("expected ErrEntropy, got %v", err)
	}
}

func TestGenerateKeypair_UnknownSuite(t *testing.T) {
	_, err := GenerateKeypair(Suite(99))
	if !errors.Is(err, ErrUnsupportedSuite) {
		t.Errorf("expected ErrUnsupportedSuite, got %v", err)
	}
}

func TestKeypairFromSeed_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, SeedEntropySize)

	for _, suite := range Suites() {
		t.Run(suite.ShortName(), func(t *testing.T) {
			kp1, err := KeypairFromSeed(suite, seed)
			if err != nil {
				t.Fatal(err)
			}
			kp2, err := KeypairFromSeed(suite, seed)
			if err != nil {
				t.Fatal(err)
			}

			if !bytes.Equal(kp1.PublicKey, kp2.PublicKey) || !bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
				t.Error("same seed produced different keypairs")
			}
		})
	}
}

func TestKeypairFromSeed_InvalidSize(t *testing.T) {
	_, err := KeypairFromSeed(SuiteX25519, make([]byte, 16))
	if !errors.Is(err, sealerr.ErrKeyFormat) {
		t.Errorf("expected ErrKeyFormat, got %v", err)
	}
}

func TestKeypairFromSecretKey(t *testing.T) {
	for _, suite := range Suites() {
		t.Run(suite.ShortName(), func(t *testing.T) {
			original, err := GenerateKeypair(suite)
			if err != nil {
				t.Fatalf("GenerateKeypair() error = %v", err)
			}

			reconstructed, err := KeypairFromSecretKey(suite, original.SecretKey)
			if err != nil {
				t.Fatalf("KeypairFromSecretKey() error = %v", err)
			}

			if !bytes.Equal(original.PublicKey, reconstructed.PublicKey) {
				t.Error("Reconstructed public key does not match original")
			}
			if !bytes.Equal(original.SecretKey, reconstructed.SecretKey) {
				t.Error("Reconstructed secret key does not match original")
			}
			if len(reconstructed.Seed) != 0 {
				t.Error("Reconstructed keypair should not carry a seed")
			}
		})
	}
}

func TestKeypairFromSecretKey_InvalidSize(t *testing.T) {
	tests := []struct {
		name  string
		suite Suite
		key   []byte
	}{
		{"empty", SuiteX25519, []byte{}},
		{"too short", SuiteX25519, []byte("too short")},
		{"x25519 one byte long", SuiteX25519, make([]byte, X25519SecretKeySize+1)},
		{"mlkem one byte short", SuiteMLKEM768, make([]byte, MLKEMSecretKeySize-1)},
		{"x25519 key for mlkem", SuiteMLKEM768, make([]byte, X25519SecretKeySize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := KeypairFromSecretKey(tt.suite, tt.key)
			if !errors.Is(err, ErrInvalidSecretKeySize) {
				t.Errorf("expected ErrInvalidSecretKeySize, got %v", err)
			}
			if !errors.Is(err, sealerr.ErrKeyFormat) {
				t.Errorf("expected ErrKeyFormat, got %v", err)
			}
		})
	}
}

func TestNewKeypairFromBytes(t *testing.T) {
	original, err := GenerateKeypair(SuiteX25519)
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	kp, err := NewKeypairFromBytes(SuiteX25519, original.SecretKey, original.PublicKey)
	if err != nil {
		t.Fatalf("NewKeypairFromBytes() error = %v", err)
	}

	if !bytes.Equal(kp.PublicKey, original.PublicKey) {
		t.Error("PublicKey mismatch")
	}
}

func TestNewKeypairFromBytes_Mismatch(t *testing.T) {
	kp1, _ := GenerateKeypair(SuiteX25519)
	kp2, _ := GenerateKeypair(SuiteX25519)

	_, err := NewKeypairFromBytes(SuiteX25519, kp1.SecretKey, kp2.PublicKey)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("expected ErrKeyMismatch, got %v", err)
	}
}

func TestValidateKeypair(t *testing.T) {
	valid, err := GenerateKeypair(SuiteX25519)
	if err != nil {
		t.Fatal(err)
	}
	other, err := GenerateKeypair(SuiteX25519)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		keypair  *Keypair
		expected bool
	}{
		{"valid", valid, true},
		{"nil", nil, false},
		{"missing secret", &Keypair{Suite: SuiteX25519, PublicKey: valid.PublicKey}, false},
		{"mismatched halves", &Keypair{Suite: SuiteX25519, PublicKey: other.PublicKey, SecretKey: valid.SecretKey}, false},
		{"wrong suite", &Keypair{Suite: SuiteMLKEM768, PublicKey: valid.PublicKey, SecretKey: valid.SecretKey}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateKeypair(tt.keypair); got != tt.expected {
				t.Errorf("ValidateKeypair() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidatePublicKey(t *testing.T) {
	kp, err := GenerateKeypair(SuiteMLKEM768)
	if err != nil {
		t.Fatal(err)
	}

	if err := ValidatePublicKey(SuiteMLKEM768, kp.PublicKey); err != nil {
		t.Errorf("ValidatePublicKey() error = %v", err)
	}

	err = ValidatePublicKey(SuiteX25519, kp.PublicKey)
	if !errors.Is(err, ErrInvalidPublicKeySize) {
		t.Errorf("expected ErrInvalidPublicKeySize, got %v", err)
	}
}

func TestValidatePublicKey_SmallOrderX25519(t *testing.T) {
	// The identity point and the order 2 point (u = 1) both yield an all
	// zero shared secret.
	one := make([]byte, 32)
	one[0] = 1

	for name, key := range map[string][]byte{
		"zero": make([]byte, 32),
		"one":  one,
	} {
		t.Run(name, func(t *testing.T) {
			err := ValidatePublicKey(SuiteX25519, key)
			if !errors.Is(err, sealerr.ErrKeyFormat) {
				t.Fatalf("ValidatePublicKey() error = %v, want ErrKeyFormat", err)
			}

			// Encrypt fails on the same keys, so validation keeps them
			// from ever reaching it
			if _, err := Encrypt(SuiteX25519, key, []byte("x")); err == nil {
				t.Error("Encrypt() to a small order key should fail")
			}
		})
	}
}

func TestValidatePublicKey_Generated(t *testing.T) {
	for _, suite := range []Suite{SuiteX25519, SuiteMLKEM768} {
		for i := 0; i < 8; i++ {
			kp := mustKeypair(t, suite)
			if err := ValidatePublicKey(suite, kp.PublicKey); err != nil {
				t.Fatalf("%s: ValidatePublicKey(generated) error = %v", suite, err)
			}
		}
	}
}

func TestParseSuite(t *testing.T) {
	tests := []struct {
		input   string
		want    Suite
		wantErr bool
	}{
		{"x25519", SuiteX25519, false},
		{"MLKEM768", SuiteMLKEM768, false},
		{" x25519 ", SuiteX25519, false},
		{"ML-KEM-768:HKDF-SHA-512:AES-256-GCM", SuiteMLKEM768, false},
		{"rsa", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSuite(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSuite() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSuite() = %v, want %v", got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, sealerr.ErrUnsupportedVersion) {
				t.Errorf("expected ErrUnsupportedVersion, got %v", err)
			}
		})
	}
}

func BenchmarkGenerateKeypair(b *testing.B) {
	for _, suite := range Suites() {
		b.Run(suite.ShortName(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := GenerateKeypair(suite); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
