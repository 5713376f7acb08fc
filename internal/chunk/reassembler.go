package chunk

import (
	"bytes"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// Defaults for ReassemblerConfig.
const (
	DefaultMaxSessions = 16
	DefaultSessionTTL  = 30 * time.Minute
)

// ReassemblerConfig configures a Reassembler.
type ReassemblerConfig struct {
	MaxSessions int           // pending sessions kept before the oldest is evicted
	SessionTTL  time.Duration // idle time after which EvictExpired drops a session
	Logger      *logrus.Logger
	Now         func() time.Time
}

// Progress describes a pending session.
type Progress struct {
	SessionID SessionID
	Received  int
	Total     int
	Missing   []int // indices not yet received, ascending
}

type buffer struct {
	total     int
	parts     map[int][]byte
	firstSeen time.Time
	lastSeen  time.Time
}

// Reassembler collects chunks per session until every index has arrived.
// It is safe for concurrent use.
type Reassembler struct {
	config ReassemblerConfig
	log    *logrus.Logger

	mu       sync.Mutex
	sessions map[SessionID]*buffer
}

// NewReassembler creates a Reassembler. Zero config fields take defaults.
func NewReassembler(config ReassemblerConfig) *Reassembler {
	if config.MaxSessions <= 0 {
		config.MaxSessions = DefaultMaxSessions
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Reassembler{
		config:   config,
		log:      config.Logger,
		sessions: make(map[SessionID]*buffer),
	}
}

// Ingest adds a chunk to its session. When the chunk completes the session,
// the payloads are returned concatenated in index order and the session is
// discarded. Duplicate chunks are ignored. A chunk whose total disagrees
// with its session's total abandons the session and returns a
// SessionMismatchError.
func (r *Reassembler) Ingest(c Chunk) (blob []byte, complete bool, err error) {
	if c.Total < 1 || c.Total > MaxChunks || c.Index < 0 || c.Index >= c.Total {
		return nil, false, sealerr.ErrMalformedChunk
	}

	// Single chunk messages never need a buffer.
	if c.Total == 1 {
		r.mu.Lock()
		buf, pending := r.sessions[c.SessionID]
		if pending && buf.total != 1 {
			delete(r.sessions, c.SessionID)
			r.mu.Unlock()
			return nil, false, r.mismatch(c, buf.total)
		}
		delete(r.sessions, c.SessionID)
		r.mu.Unlock()
		return bytes.Clone(c.Payload), true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.config.Now()
	buf, ok := r.sessions[c.SessionID]
	if !ok {
		r.evictOldestLocked()
		buf = &buffer{
			total:     c.Total,
			parts:     make(map[int][]byte, c.Total),
			firstSeen: now,
		}
		r.sessions[c.SessionID] = buf
		r.log.WithFields(logrus.Fields{
			"session": c.SessionID.String(),
			"total":   c.Total,
		}).Debug("chunk session started")
	}

	if buf.total != c.Total {
		delete(r.sessions, c.SessionID)
		return nil, false, r.mismatch(c, buf.total)
	}

	buf.lastSeen = now
	if _, dup := buf.parts[c.Index]; dup {
		return nil, false, nil
	}
	buf.parts[c.Index] = bytes.Clone(c.Payload)

	if len(buf.parts) < buf.total {
		return nil, false, nil
	}

	size := 0
	for _, p := range buf.parts {
		size += len(p)
	}
	blob = make([]byte, 0, size)
	for i := 0; i < buf.total; i++ {
		blob = append(blob, buf.parts[i]...)
	}
	delete(r.sessions, c.SessionID)

	r.log.WithFields(logrus.Fields{
		"session": c.SessionID.String(),
		"total":   buf.total,
		"bytes":   len(blob),
	}).Debug("chunk session complete")

	return blob, true, nil
}

func (r *Reassembler) mismatch(c Chunk, want int) error {
	r.log.WithFields(logrus.Fields{
		"session": c.SessionID.String(),
		"want":    want,
		"got":     c.Total,
	}).Warn("chunk total disagrees with session, abandoning")
	return &sealerr.SessionMismatchError{SessionID: c.SessionID.String(), Want: want, Got: c.Total}
}

// evictOldestLocked makes room for one more session.
func (r *Reassembler) evictOldestLocked() {
	for len(r.sessions) >= r.config.MaxSessions {
		var (
			oldestID SessionID
			oldest   *buffer
		)
		for id, buf := range r.sessions {
			if oldest == nil || buf.firstSeen.Before(oldest.firstSeen) {
				oldestID, oldest = id, buf
			}
		}
		delete(r.sessions, oldestID)
		r.log.WithField("session", oldestID.String()).Info("evicted oldest pending chunk session")
	}
}

// Progress reports the state of a pending session.
func (r *Reassembler) Progress(id SessionID) (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.sessions[id]
	if !ok {
		return Progress{}, false
	}
	return progressOf(id, buf), true
}

// Pending lists every pending session.
func (r *Reassembler) Pending() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Progress, 0, len(r.sessions))
	for id, buf := range r.sessions {
		out = append(out, progressOf(id, buf))
	}
	return out
}

func progressOf(id SessionID, buf *buffer) Progress {
	p := Progress{SessionID: id, Received: len(buf.parts), Total: buf.total}
	for i := 0; i < buf.total; i++ {
		if _, ok := buf.parts[i]; !ok {
			p.Missing = append(p.Missing, i)
		}
	}
	return p
}

// Abandon drops a pending session. It reports whether the session existed.
func (r *Reassembler) Abandon(id SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Reset drops every pending session.
func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.sessions)
}

// EvictExpired drops sessions that have not received a chunk within the
// configured TTL and returns how many were dropped.
func (r *Reassembler) EvictExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, buf := range r.sessions {
		if now.Sub(buf.lastSeen) > r.config.SessionTTL {
			delete(r.sessions, id)
			evicted++
			r.log.WithField("session", id.String()).Info("evicted expired chunk session")
		}
	}
	return evicted
}

// Len returns the number of pending sessions.
func (r *Reassembler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
