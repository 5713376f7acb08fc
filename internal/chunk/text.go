package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vaultsandbox/qrseal/internal/base45"
	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// TextPrefix starts every chunk text.
const TextPrefix = "QSMC:"

// EncodeText renders a chunk as TextPrefix followed by the Base45 form of
// its record. The result only uses the QR alphanumeric alphabet.
func EncodeText(c Chunk) (string, error) {
	record, err := c.Marshal()
	if err != nil {
		return "", err
	}
	return TextPrefix + base45.Encode(record), nil
}

// IsChunkText reports whether text carries the chunk prefix.
func IsChunkText(text string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.Trim(text, "\r\n\t")), TextPrefix)
}

// DecodeText parses a chunk text. Scanners may lowercase the text or add
// line breaks around it; both are tolerated. Spaces are not trimmed since
// space is part of the Base45 alphabet.
func DecodeText(text string) (Chunk, error) {
	text = strings.ToUpper(strings.Trim(text, "\r\n\t"))

	body, ok := strings.CutPrefix(text, TextPrefix)
	if !ok {
		return Chunk{}, fmt.Errorf("%w: missing %s prefix", sealerr.ErrMalformedChunk, TextPrefix)
	}

	record, err := base45.Decode(body)
	switch {
	case err == nil:
	case errors.Is(err, base45.ErrOverflow), errors.Is(err, base45.ErrInvalidCharacter):
		// The prefix matched, so a stray character or an out of range group
		// means the scan misread this chunk.
		return Chunk{}, &sealerr.ChecksumMismatchError{Reason: err.Error()}
	default:
		return Chunk{}, fmt.Errorf("%w: %v", sealerr.ErrMalformedChunk, err)
	}

	return Unmarshal(record)
}
