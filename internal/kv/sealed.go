package kv

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealedVersion = 1
	sealedKDF     = "argon2id"
	saltSize      = 16

	// Upper bound on the stored memory cost, so a tampered value cannot
	// make Get allocate without limit.
	maxMemoryKB = 1 << 21
)

var (
	// ErrSealedAuth is returned when a sealed value cannot be opened, which
	// usually means the passphrase is wrong.
	ErrSealedAuth = errors.New("kv: sealed value authentication failed")

	// ErrSealedInvalid is returned when a stored value is not a sealed envelope.
	ErrSealedInvalid = errors.New("kv: sealed value is invalid")
)

// KDFParams are the Argon2id cost parameters.
type KDFParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

func (p KDFParams) valid() bool {
	return p.Time >= 1 && p.Threads >= 1 && p.MemoryKB >= 8*uint32(p.Threads) && p.MemoryKB <= maxMemoryKB
}

// DefaultKDFParams are used when a Sealed store is created with zero params.
var DefaultKDFParams = KDFParams{Time: 2, MemoryKB: 64 * 1024, Threads: 1}

type sealedEnvelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Sealed wraps a Store and encrypts every value with a key derived from a
// passphrase. The key name is bound to the ciphertext, so values cannot be
// swapped between keys.
type Sealed struct {
	inner      Store
	passphrase []byte
	params     KDFParams
	rand       io.Reader
}

// NewSealed wraps inner. A zero params value selects DefaultKDFParams.
func NewSealed(inner Store, passphrase string, params KDFParams) (*Sealed, error) {
	if passphrase == "" {
		return nil, errors.New("kv: empty passphrase")
	}
	if params == (KDFParams{}) {
		params = DefaultKDFParams
	}
	if !params.valid() {
		return nil, fmt.Errorf("kv: invalid KDF params %+v", params)
	}
	return &Sealed{
		inner:      inner,
		passphrase: []byte(passphrase),
		params:     params,
		rand:       rand.Reader,
	}, nil
}

func (s *Sealed) Get(key string) ([]byte, error) {
	raw, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}

	var env sealedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrSealedInvalid
	}
	if env.Version != sealedVersion || env.KDF != sealedKDF || len(env.Salt) != saltSize || len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrSealedInvalid
	}
	params := KDFParams{Time: env.KDFTime, MemoryKB: env.KDFMemoryKB, Threads: env.KDFThreads}
	if !params.valid() {
		return nil, ErrSealedInvalid
	}

	k := s.deriveKey(env.Salt, params)
	defer zeroBytes(k)

	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(key))
	if err != nil {
		return nil, ErrSealedAuth
	}
	return plaintext, nil
}

func (s *Sealed) Set(key string, value []byte) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(s.rand, salt); err != nil {
		return fmt.Errorf("kv: salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return fmt.Errorf("kv: nonce: %w", err)
	}

	k := s.deriveKey(salt, s.params)
	defer zeroBytes(k)

	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(sealedEnvelope{
		Version:     sealedVersion,
		KDF:         sealedKDF,
		KDFTime:     s.params.Time,
		KDFMemoryKB: s.params.MemoryKB,
		KDFThreads:  s.params.Threads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, value, []byte(key)),
	})
	if err != nil {
		return err
	}
	return s.inner.Set(key, raw)
}

func (s *Sealed) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *Sealed) deriveKey(salt []byte, p KDFParams) []byte {
	return argon2.IDKey(s.passphrase, salt, p.Time, p.MemoryKB, p.Threads, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
