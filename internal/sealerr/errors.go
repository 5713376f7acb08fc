// Package sealerr provides shared error types for the qrseal packages.
package sealerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrEntropy is returned when the platform cannot supply secure randomness.
	ErrEntropy = errors.New("secure random source unavailable")

	// ErrKeyFormat is returned when raw key bytes do not have the shape
	// required by the cipher suite.
	ErrKeyFormat = errors.New("invalid key format")

	// ErrMalformedKey is returned when an encoded key text cannot be imported.
	ErrMalformedKey = errors.New("malformed key text")

	// ErrAuthentication is returned when an envelope fails authentication.
	// It does not distinguish a wrong key from a tampered envelope.
	ErrAuthentication = errors.New("message authentication failed")

	// ErrUnsupportedVersion is returned when a version tag or cipher suite
	// is not recognized.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrTruncatedData is returned when a declared length exceeds the
	// available bytes.
	ErrTruncatedData = errors.New("truncated data")

	// ErrMalformedChunk is returned when a text cannot be parsed as a chunk.
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrChecksumMismatch is returned when a chunk is corrupt.
	ErrChecksumMismatch = errors.New("chunk checksum mismatch")

	// ErrSessionMismatch is returned when chunks of one session disagree.
	ErrSessionMismatch = errors.New("chunk session mismatch")

	// ErrNoKeyPair is returned when no local keypair has been stored yet.
	ErrNoKeyPair = errors.New("no local keypair")

	// ErrContactNotFound is returned when no contact has the given public key.
	ErrContactNotFound = errors.New("contact not found")

	// ErrCapacityTooSmall is returned when a chunk capacity cannot hold the
	// chunk header plus at least one payload byte.
	ErrCapacityTooSmall = errors.New("chunk capacity too small")

	// ErrBlobTooLarge is returned when a blob needs more chunks than the
	// header can number.
	ErrBlobTooLarge = errors.New("blob too large to chunk")
)

// ChecksumMismatchError reports a corrupt chunk.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
	Reason   string // set when the body could not be decoded at all
}

func (e *ChecksumMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("chunk checksum mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("chunk checksum mismatch: expected %08x, got %08x", e.Expected, e.Actual)
}

// Is implements errors.Is for sentinel error matching.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// SessionMismatchError reports a chunk whose total disagrees with the
// total already recorded for its session.
type SessionMismatchError struct {
	SessionID string
	Want      int
	Got       int
}

func (e *SessionMismatchError) Error() string {
	return fmt.Sprintf("chunk session mismatch: session %s declared total %d, chunk declares %d", e.SessionID, e.Want, e.Got)
}

// Is implements errors.Is for sentinel error matching.
func (e *SessionMismatchError) Is(target error) bool {
	return target == ErrSessionMismatch
}

// TruncatedDataError reports a field whose declared length runs past the
// end of the input.
type TruncatedDataError struct {
	Field string
	Need  int
	Have  int
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("truncated data: %s needs %d bytes, %d available", e.Field, e.Need, e.Have)
}

// Is implements errors.Is for sentinel error matching.
func (e *TruncatedDataError) Is(target error) bool {
	return target == ErrTruncatedData
}
