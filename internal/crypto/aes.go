package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

// sealAESGCM encrypts plaintext with AES-256-GCM and returns the
// ciphertext and the detached tag.
func sealAESGCM(key, nonce, aad, plaintext []byte) (ciphertext, tag []byte, err error) {
	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - AESTagSize
	return sealed[:split:split], sealed[split:], nil
}

// openAESGCM verifies the detached tag and decrypts. The tag comparison
// happens in constant time inside cipher.AEAD.Open, and no plaintext is
// produced unless it succeeds.
func openAESGCM(key, nonce, aad, ciphertext, tag []byte) ([]byte, error) {
	if len(tag) != AESTagSize {
		return nil, sealerr.ErrAuthentication
	}

	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, sealerr.ErrAuthentication
	}

	return plaintext, nil
}
