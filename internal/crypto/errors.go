package crypto

import (
	"errors"
	"fmt"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

var (
	// ErrUnsupportedSuite is returned when a suite identifier is not recognized.
	ErrUnsupportedSuite = fmt.Errorf("%w: unknown cipher suite", sealerr.ErrUnsupportedVersion)

	// ErrInvalidSecretKeySize is returned when the secret key size is invalid.
	ErrInvalidSecretKeySize = fmt.Errorf("%w: invalid secret key size", sealerr.ErrKeyFormat)

	// ErrInvalidPublicKeySize is returned when the public key size is invalid.
	ErrInvalidPublicKeySize = fmt.Errorf("%w: invalid public key size", sealerr.ErrKeyFormat)

	// ErrKeyMismatch is returned when a public key does not belong to the
	// secret key it is paired with.
	ErrKeyMismatch = fmt.Errorf("%w: public key does not match secret key", sealerr.ErrKeyFormat)

	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")
)
