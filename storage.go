package qrseal

import (
	"github.com/vaultsandbox/qrseal/internal/kv"
)

// Storage persists the keypair and contacts. Set must replace a value
// atomically. Implementations return ErrNotFound from Get for missing keys.
type Storage = kv.Store

// NewMemoryStorage returns a Storage that lives only as long as the process.
func NewMemoryStorage() Storage {
	return kv.NewMemory()
}

// NewFileStorage returns a Storage keeping one file per entry in dir.
// Several processes may share dir; the last keypair written wins.
func NewFileStorage(dir string) (Storage, error) {
	return kv.NewFile(dir)
}

// BadgerStorage is a Storage backed by a Badger database. Close it when done.
type BadgerStorage = kv.Badger

// NewBadgerStorage opens a Badger database at path. An empty path opens an
// in-memory database.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	return kv.NewBadger(kv.BadgerConfig{Path: path, InMemory: path == ""})
}

// NewSealedStorage wraps inner so that every value is encrypted at rest
// with a key derived from passphrase using Argon2id.
func NewSealedStorage(inner Storage, passphrase string) (Storage, error) {
	return kv.NewSealed(inner, passphrase, kv.KDFParams{})
}
