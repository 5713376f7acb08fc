package qrseal

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultsandbox/qrseal/internal/chunk"
	"github.com/vaultsandbox/qrseal/internal/crypto"
)

// Suite selects the key encapsulation used for new keypairs.
type Suite = crypto.Suite

const (
	// SuiteX25519 uses X25519. Its keys fit in one small QR code.
	SuiteX25519 = crypto.SuiteX25519
	// SuiteMLKEM768 uses the post-quantum ML-KEM-768.
	SuiteMLKEM768 = crypto.SuiteMLKEM768
)

// ParseSuite parses a suite name such as "x25519" or "mlkem768".
func ParseSuite(name string) (Suite, error) {
	return crypto.ParseSuite(name)
}

// QRMode is the QR data encoding mode chunk texts are sized for.
type QRMode = chunk.Mode

// QR modes.
const (
	QRModeByte         = chunk.ModeByte
	QRModeAlphanumeric = chunk.ModeAlphanumeric
)

// ParseQRMode parses "byte" or "alphanumeric".
func ParseQRMode(name string) (QRMode, error) {
	return chunk.ParseMode(name)
}

// ECLevel is a QR error correction level.
type ECLevel = chunk.Level

// Error correction levels, from least to most redundant.
const (
	ECLevelL = chunk.LevelL
	ECLevelM = chunk.LevelM
	ECLevelQ = chunk.LevelQ
	ECLevelH = chunk.LevelH
)

// ParseECLevel parses an error correction level letter.
func ParseECLevel(name string) (ECLevel, error) {
	return chunk.ParseLevel(name)
}

const (
	defaultQRVersion = chunk.Version40
	defaultQRMode    = chunk.DefaultMode
	defaultECLevel   = chunk.DefaultLevel
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	suite  Suite
	logger *logrus.Logger

	qrVersion     int
	qrMode        QRMode
	ecLevel       ECLevel
	chunkCapacity int

	maxPendingSessions int
	sessionTTL         time.Duration
	now                func() time.Time
}

// Option configures the client.
type Option func(*clientConfig)

// WithSuite sets the suite used when a keypair is generated.
// Default: SuiteX25519
func WithSuite(suite Suite) Option {
	return func(c *clientConfig) {
		c.suite = suite
	}
}

// WithLogger sets the logger. Key material and plaintext are never logged.
// Default: logrus.New()
func WithLogger(logger *logrus.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithQRProfile sets the QR symbol version (10, 20 or 40), encoding mode
// and error correction level that chunk texts must fit.
// Default: version 40, byte mode, level H
func WithQRProfile(version int, mode QRMode, level ECLevel) Option {
	return func(c *clientConfig) {
		c.qrVersion = version
		c.qrMode = mode
		c.ecLevel = level
	}
}

// WithChunkCapacity sets the maximum chunk record size in bytes directly,
// overriding the QR profile.
func WithChunkCapacity(bytes int) Option {
	return func(c *clientConfig) {
		c.chunkCapacity = bytes
	}
}

// WithMaxPendingSessions bounds how many partially scanned messages a
// Receiver keeps. The oldest is dropped when the bound is reached.
// Default: 16
func WithMaxPendingSessions(n int) Option {
	return func(c *clientConfig) {
		c.maxPendingSessions = n
	}
}

// WithSessionTTL sets how long a partially scanned message survives
// without a new chunk before Receiver.EvictExpired drops it.
// Default: 30 minutes
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.sessionTTL = ttl
	}
}

// WithClock sets the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.now = now
	}
}

// capacity resolves the chunk capacity in bytes.
func (c *clientConfig) capacity() int {
	if c.chunkCapacity > 0 {
		return c.chunkCapacity
	}
	return chunk.CapacityBytesForVersion(c.qrVersion, c.qrMode, c.ecLevel)
}

// ChunkCapacity returns the chunk record capacity in bytes for a QR
// profile, or 0 for an unknown profile.
func ChunkCapacity(version int, mode QRMode, level ECLevel) int {
	return chunk.CapacityBytesForVersion(version, mode, level)
}

// SymbolCapacity returns the character capacity of a QR symbol.
func SymbolCapacity(version int, mode QRMode, level ECLevel) int {
	return chunk.SymbolCapacity(version, mode, level)
}
