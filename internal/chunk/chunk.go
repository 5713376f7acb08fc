// Package chunk splits framed envelopes into QR sized text chunks and
// reassembles them on the receiving side.
//
// Chunk record layout (big endian):
//
//	version(1) | sessionId(8) | index(2) | total(2) | payload | checksum(4)
//
// The checksum is the low 32 bits of xxHash64 over everything before it,
// so a corrupt header is caught as reliably as a corrupt payload.
package chunk

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// Version is the current chunk record version.
const Version = 1

// SessionIDSize is the size of a session identifier.
const SessionIDSize = 8

const (
	headerSize   = 1 + SessionIDSize + 2 + 2
	checksumSize = 4
)

// Overhead is the fixed per-chunk byte cost on top of the payload.
const Overhead = headerSize + checksumSize

// MaxChunks is the largest number of chunks one session can have.
const MaxChunks = math.MaxUint16

// SessionID identifies one chunked transfer.
type SessionID [SessionIDSize]byte

// String returns the session ID as hex.
func (s SessionID) String() string {
	return hex.EncodeToString(s[:])
}

// Chunk is one capacity-bounded fragment of a blob.
type Chunk struct {
	Version   uint8
	SessionID SessionID
	Index     int
	Total     int
	Payload   []byte
}

var randReader io.Reader = rand.Reader

func newSessionID() (SessionID, error) {
	var id SessionID
	if _, err := io.ReadFull(randReader, id[:]); err != nil {
		return id, fmt.Errorf("%w: %v", sealerr.ErrEntropy, err)
	}
	return id, nil
}

// Split cuts blob into chunks whose records are at most capacity bytes.
// All chunks share one fresh session ID. A blob that fits the payload
// budget of a single chunk yields exactly one chunk, and an empty blob
// still yields one chunk so the receiver learns the session is complete.
func Split(blob []byte, capacity int) ([]Chunk, error) {
	budget := capacity - Overhead
	if budget <= 0 {
		return nil, fmt.Errorf("%w: %d bytes, need more than %d", sealerr.ErrCapacityTooSmall, capacity, Overhead)
	}

	total := (len(blob) + budget - 1) / budget
	if total == 0 {
		total = 1
	}
	if total > MaxChunks {
		return nil, fmt.Errorf("%w: %d bytes needs %d chunks, max %d", sealerr.ErrBlobTooLarge, len(blob), total, MaxChunks)
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, total)
	for i := range chunks {
		start := i * budget
		end := min(start+budget, len(blob))
		chunks[i] = Chunk{
			Version:   Version,
			SessionID: id,
			Index:     i,
			Total:     total,
			Payload:   append([]byte(nil), blob[start:end]...),
		}
	}
	return chunks, nil
}

// Marshal renders the binary chunk record including its checksum.
func (c Chunk) Marshal() ([]byte, error) {
	if c.Total < 1 || c.Total > MaxChunks || c.Index < 0 || c.Index >= c.Total {
		return nil, fmt.Errorf("%w: index %d of %d", sealerr.ErrMalformedChunk, c.Index, c.Total)
	}

	version := c.Version
	if version == 0 {
		version = Version
	}

	record := make([]byte, 0, Overhead+len(c.Payload))
	record = append(record, version)
	record = append(record, c.SessionID[:]...)
	record = binary.BigEndian.AppendUint16(record, uint16(c.Index))
	record = binary.BigEndian.AppendUint16(record, uint16(c.Total))
	record = append(record, c.Payload...)
	record = binary.BigEndian.AppendUint32(record, checksum(record))
	return record, nil
}

// Unmarshal parses a binary chunk record. The checksum is verified before
// any header field is trusted.
func Unmarshal(record []byte) (Chunk, error) {
	if len(record) < Overhead {
		return Chunk{}, fmt.Errorf("%w: record is %d bytes, need at least %d", sealerr.ErrMalformedChunk, len(record), Overhead)
	}

	body := record[:len(record)-checksumSize]
	want := binary.BigEndian.Uint32(record[len(body):])
	if got := checksum(body); got != want {
		return Chunk{}, &sealerr.ChecksumMismatchError{Expected: want, Actual: got}
	}

	if body[0] != Version {
		return Chunk{}, fmt.Errorf("%w: chunk version %d", sealerr.ErrUnsupportedVersion, body[0])
	}

	c := Chunk{Version: body[0]}
	copy(c.SessionID[:], body[1:1+SessionIDSize])
	c.Index = int(binary.BigEndian.Uint16(body[1+SessionIDSize:]))
	c.Total = int(binary.BigEndian.Uint16(body[3+SessionIDSize:]))
	c.Payload = append([]byte(nil), body[headerSize:]...)

	if c.Total < 1 || c.Index >= c.Total {
		return Chunk{}, fmt.Errorf("%w: index %d of %d", sealerr.ErrMalformedChunk, c.Index, c.Total)
	}
	return c, nil
}

func checksum(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}
