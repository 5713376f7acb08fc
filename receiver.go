package qrseal

import (
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultsandbox/qrseal/internal/chunk"
	"github.com/vaultsandbox/qrseal/internal/crypto"
	"github.com/vaultsandbox/qrseal/internal/envelope"
)

// ScanResult reports the state of a message after one chunk was scanned.
type ScanResult struct {
	// Complete is true once every chunk arrived and the message was opened.
	Complete bool
	// SessionID identifies the message the chunk belongs to.
	SessionID string
	// Received and Total count the message's chunks.
	Received int
	Total    int
	// Missing lists chunk indices still to scan, ascending.
	Missing []int
	// Plaintext is set when Complete is true.
	Plaintext []byte
}

// Receiver reassembles scanned chunk texts into messages and opens them
// with the client's secret key. Partially scanned messages are bounded by
// WithMaxPendingSessions and WithSessionTTL.
type Receiver struct {
	client *Client
	log    *logrus.Logger
	now    func() time.Time
	r      *chunk.Reassembler
}

// NewReceiver creates a Receiver for one receive session.
func (c *Client) NewReceiver() *Receiver {
	now := c.cfg.now
	if now == nil {
		now = time.Now
	}
	return &Receiver{
		client: c,
		log:    c.log,
		now:    now,
		r: chunk.NewReassembler(chunk.ReassemblerConfig{
			MaxSessions: c.cfg.maxPendingSessions,
			SessionTTL:  c.cfg.sessionTTL,
			Logger:      c.log,
			Now:         now,
		}),
	}
}

// Scan feeds one scanned text to the receiver.
//
// A corrupt chunk returns ErrChecksumMismatch and leaves the message's
// other chunks in place, so only that chunk needs rescanning. When the last
// chunk arrives the message is opened; a message that fails to open returns
// ErrAuthentication and releases no plaintext.
func (r *Receiver) Scan(text string) (*ScanResult, error) {
	c, err := chunk.DecodeText(text)
	if err != nil {
		return nil, err
	}

	blob, complete, err := r.r.Ingest(c)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		SessionID: c.SessionID.String(),
		Total:     c.Total,
	}
	if !complete {
		if p, ok := r.r.Progress(c.SessionID); ok {
			result.Received = p.Received
			result.Missing = p.Missing
		}
		return result, nil
	}

	plaintext, err := r.open(blob)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session": result.SessionID,
			"error":   err,
		}).Warn("reassembled message could not be opened")
		return nil, err
	}

	result.Complete = true
	result.Received = c.Total
	result.Plaintext = plaintext
	return result, nil
}

func (r *Receiver) open(blob []byte) ([]byte, error) {
	env, err := envelope.Parse(blob)
	if err != nil {
		return nil, err
	}

	suite, secretKey := r.client.secretKey()
	if env.Suite != uint8(suite) {
		// Sealed for a key of another suite, so not for this keypair
		return nil, ErrAuthentication
	}

	return crypto.Decrypt(env, secretKey)
}

// Pending returns the progress of every partially scanned message.
func (r *Receiver) Pending() []ScanResult {
	pending := r.r.Pending()
	out := make([]ScanResult, 0, len(pending))
	for _, p := range pending {
		out = append(out, ScanResult{
			SessionID: p.SessionID.String(),
			Received:  p.Received,
			Total:     p.Total,
			Missing:   p.Missing,
		})
	}
	return out
}

// Abandon drops a partially scanned message. It reports whether the
// session was pending.
func (r *Receiver) Abandon(sessionID string) bool {
	raw, err := hex.DecodeString(sessionID)
	if err != nil || len(raw) != chunk.SessionIDSize {
		return false
	}
	var id chunk.SessionID
	copy(id[:], raw)
	return r.r.Abandon(id)
}

// Reset drops every partially scanned message.
func (r *Receiver) Reset() {
	r.r.Reset()
}

// EvictExpired drops partially scanned messages that have not seen a chunk
// within the session TTL and returns how many were dropped.
func (r *Receiver) EvictExpired() int {
	return r.r.EvictExpired(r.now())
}
