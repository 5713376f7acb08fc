package qrseal

import (
	"errors"

	"github.com/vaultsandbox/qrseal/internal/keystore"
	"github.com/vaultsandbox/qrseal/internal/kv"
	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingStorage is returned when New is called without a Storage.
	ErrMissingStorage = errors.New("storage is required")

	// ErrEntropy is returned when the platform cannot supply secure
	// randomness. Retrying is pointless.
	ErrEntropy = sealerr.ErrEntropy

	// ErrKeyFormat is returned when raw key bytes have the wrong shape.
	ErrKeyFormat = sealerr.ErrKeyFormat

	// ErrMalformedKey is returned when a key text cannot be imported.
	ErrMalformedKey = sealerr.ErrMalformedKey

	// ErrAuthentication is returned when a message fails authentication.
	// A wrong key and a tampered message are deliberately indistinguishable.
	ErrAuthentication = sealerr.ErrAuthentication

	// ErrUnsupportedVersion is returned for unknown version tags or suites.
	ErrUnsupportedVersion = sealerr.ErrUnsupportedVersion

	// ErrTruncatedData is returned when a framed message is cut short.
	ErrTruncatedData = sealerr.ErrTruncatedData

	// ErrMalformedChunk is returned when a scanned text is not a chunk.
	ErrMalformedChunk = sealerr.ErrMalformedChunk

	// ErrChecksumMismatch is returned when one scanned chunk is corrupt.
	// Rescanning that chunk is enough.
	ErrChecksumMismatch = sealerr.ErrChecksumMismatch

	// ErrSessionMismatch is returned when chunks of one message disagree.
	// The partial message is abandoned.
	ErrSessionMismatch = sealerr.ErrSessionMismatch

	// ErrNoKeyPair is returned when no local keypair exists.
	ErrNoKeyPair = sealerr.ErrNoKeyPair

	// ErrContactNotFound is returned when a contact lookup fails.
	ErrContactNotFound = sealerr.ErrContactNotFound

	// ErrCapacityTooSmall is returned when the configured chunk capacity
	// cannot hold a chunk header and payload.
	ErrCapacityTooSmall = sealerr.ErrCapacityTooSmall

	// ErrBlobTooLarge is returned when a message needs too many chunks.
	ErrBlobTooLarge = sealerr.ErrBlobTooLarge

	// ErrInvalidMnemonic is returned for invalid recovery words.
	ErrInvalidMnemonic = keystore.ErrInvalidMnemonic

	// ErrSeedNotAvailable is returned by Mnemonic when the keypair was
	// imported from a bare secret key.
	ErrSeedNotAvailable = keystore.ErrSeedNotAvailable

	// ErrInvalidImportData is returned when a keypair backup is invalid.
	ErrInvalidImportData = errors.New("invalid import data")

	// ErrNotFound is returned by Storage.Get for missing keys.
	ErrNotFound = kv.ErrNotFound
)

// ChecksumMismatchError reports a corrupt chunk.
type ChecksumMismatchError = sealerr.ChecksumMismatchError

// SessionMismatchError reports chunks of one session that disagree on
// their total.
type SessionMismatchError = sealerr.SessionMismatchError

// TruncatedDataError reports a framed field that runs past the input.
type TruncatedDataError = sealerr.TruncatedDataError
