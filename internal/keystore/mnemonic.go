package keystore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

var (
	// ErrInvalidMnemonic is returned for word lists that are not a valid
	// 24-word BIP-39 mnemonic.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrSeedNotAvailable is returned when a keypair was imported from a
	// bare secret key and so has no entropy to render as words.
	ErrSeedNotAvailable = errors.New("seed is not available")
)

// Mnemonic renders the keypair entropy as 24 BIP-39 words.
func Mnemonic(kp *KeyPair) (string, error) {
	if len(kp.Seed) == 0 {
		return "", ErrSeedNotAvailable
	}
	return bip39.NewMnemonic(kp.Seed)
}

// EntropyFromMnemonic validates a mnemonic and returns its entropy.
// Extra whitespace and letter case are ignored.
func EntropyFromMnemonic(mnemonic string) ([]byte, error) {
	mnemonic = strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	if mnemonic == "" || !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	if len(entropy) != 32 {
		return nil, fmt.Errorf("%w: %d words, want 24", ErrInvalidMnemonic, len(strings.Fields(mnemonic)))
	}
	return entropy, nil
}
