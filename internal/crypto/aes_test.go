package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSealAESGCM_OpenAESGCM_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		aad       []byte
	}{
		{"empty", []byte{}, nil},
		{"simple", []byte("hello world"), []byte("header")},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}, []byte{1, 2, 3}},
		{"large", make([]byte, 10000), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := randomBytes(t, AESKeySize)
			nonce := randomBytes(t, AESNonceSize)

			ciphertext, tag, err := sealAESGCM(key, nonce, tt.aad, tt.plaintext)
			if err != nil {
				t.Fatalf("sealAESGCM() error = %v", err)
			}

			if len(ciphertext) != len(tt.plaintext) {
				t.Errorf("ciphertext length = %d, want %d", len(ciphertext), len(tt.plaintext))
			}
			if len(tag) != AESTagSize {
				t.Errorf("tag length = %d, want %d", len(tag), AESTagSize)
			}

			decrypted, err := openAESGCM(key, nonce, tt.aad, ciphertext, tag)
			if err != nil {
				t.Fatalf("openAESGCM() error = %v", err)
			}

			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Errorf("decrypted = %v, want %v", decrypted, tt.plaintext)
			}
		})
	}
}

func TestSealAESGCM_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"empty", 0},
		{"too short", 16},
		{"too long", 64},
	}

	nonce := make([]byte, AESNonceSize)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sealAESGCM(make([]byte, tt.keySize), nonce, nil, []byte("test"))
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestSealAESGCM_InvalidNonceSize(t *testing.T) {
	tests := []struct {
		name      string
		nonceSize int
	}{
		{"empty", 0},
		{"too short", 8},
		{"too long", 16},
	}

	key := make([]byte, AESKeySize)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sealAESGCM(key, make([]byte, tt.nonceSize), nil, []byte("test"))
			if !errors.Is(err, ErrInvalidNonceSize) {
				t.Errorf("expected ErrInvalidNonceSize, got %v", err)
			}
		})
	}
}

func TestOpenAESGCM_Tampering(t *testing.T) {
	key := randomBytes(t, AESKeySize)
	nonce := randomBytes(t, AESNonceSize)
	aad := []byte("header")

	ciphertext, tag, err := sealAESGCM(key, nonce, aad, []byte("sensitive data"))
	if err != nil {
		t.Fatal(err)
	}

	flip := func(b []byte, i int) []byte {
		out := bytes.Clone(b)
		out[i] ^= 0x01
		return out
	}

	tests := []struct {
		name       string
		ciphertext []byte
		tag        []byte
		aad        []byte
	}{
		{"ciphertext bit", flip(ciphertext, 3), tag, aad},
		{"tag bit", ciphertext, flip(tag, 0), aad},
		{"aad bit", ciphertext, tag, flip(aad, 1)},
		{"short tag", ciphertext, tag[:AESTagSize-1], aad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext, err := openAESGCM(key, nonce, tt.aad, tt.ciphertext, tt.tag)
			if !errors.Is(err, sealerr.ErrAuthentication) {
				t.Errorf("expected ErrAuthentication, got %v", err)
			}
			if plaintext != nil {
				t.Error("plaintext released on authentication failure")
			}
		})
	}
}

func TestOpenAESGCM_WrongKey(t *testing.T) {
	nonce := randomBytes(t, AESNonceSize)

	ciphertext, tag, err := sealAESGCM(randomBytes(t, AESKeySize), nonce, nil, []byte("secret message"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = openAESGCM(randomBytes(t, AESKeySize), nonce, nil, ciphertext, tag)
	if !errors.Is(err, sealerr.ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}
