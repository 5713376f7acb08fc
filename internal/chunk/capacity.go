package chunk

import (
	"fmt"
	"strings"

	"github.com/vaultsandbox/qrseal/internal/base45"
)

// Mode is the QR data encoding mode a chunk text is rendered with.
type Mode int

const (
	// ModeByte encodes 8-bit bytes.
	ModeByte Mode = iota
	// ModeAlphanumeric encodes the 45-character alphanumeric set.
	ModeAlphanumeric
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeByte:
		return "byte"
	case ModeAlphanumeric:
		return "alphanumeric"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "byte", "binary":
		return ModeByte, nil
	case "alphanumeric", "alnum":
		return ModeAlphanumeric, nil
	default:
		return 0, fmt.Errorf("unknown QR mode %q", s)
	}
}

// Level is a QR error correction level.
type Level int

const (
	// LevelL recovers about 7% of damaged codewords.
	LevelL Level = iota
	// LevelM recovers about 15% of damaged codewords.
	LevelM
	// LevelQ recovers about 25% of damaged codewords.
	LevelQ
	// LevelH recovers about 30% of damaged codewords.
	LevelH
)

// String returns the single-letter level name.
func (l Level) String() string {
	switch l {
	case LevelL:
		return "L"
	case LevelM:
		return "M"
	case LevelQ:
		return "Q"
	case LevelH:
		return "H"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel parses an error correction level letter.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return LevelL, nil
	case "M":
		return LevelM, nil
	case "Q":
		return LevelQ, nil
	case "H":
		return LevelH, nil
	default:
		return 0, fmt.Errorf("unknown QR error correction level %q", s)
	}
}

// Supported symbol versions.
const (
	Version10 = 10
	Version20 = 20
	Version40 = 40
)

// DefaultMode and DefaultLevel form the recommended profile: byte mode
// under the highest error correction level.
const (
	DefaultMode  = ModeByte
	DefaultLevel = LevelH
)

// symbolCapacity holds character capacities from ISO/IEC 18004 table 7,
// indexed by [mode][level].
var symbolCapacity = map[int][2][4]int{
	Version10: {
		ModeByte:         {271, 213, 151, 119},
		ModeAlphanumeric: {395, 311, 221, 174},
	},
	Version20: {
		ModeByte:         {858, 666, 482, 382},
		ModeAlphanumeric: {1249, 970, 702, 557},
	},
	Version40: {
		ModeByte:         {2953, 2331, 1663, 1273},
		ModeAlphanumeric: {4296, 3391, 2420, 1852},
	},
}

// SymbolCapacity returns how many characters a symbol of the given version
// holds in the given mode and level. It returns 0 for unknown inputs.
func SymbolCapacity(version int, mode Mode, level Level) int {
	row, ok := symbolCapacity[version]
	if !ok || mode < ModeByte || mode > ModeAlphanumeric || level < LevelL || level > LevelH {
		return 0
	}
	return row[mode][level]
}

// CapacityBytes returns the largest chunk record size whose text form fits
// a version 40 symbol in the given mode and level.
func CapacityBytes(mode Mode, level Level) int {
	return CapacityBytesForVersion(Version40, mode, level)
}

// CapacityBytesForVersion is CapacityBytes for a specific symbol version.
func CapacityBytesForVersion(version int, mode Mode, level Level) int {
	chars := SymbolCapacity(version, mode, level) - len(TextPrefix)
	if chars <= 0 {
		return 0
	}
	return base45.MaxDecodedLen(chars)
}
