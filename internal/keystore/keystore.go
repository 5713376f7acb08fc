// Package keystore holds the local keypair and the contact list on top of
// a kv.Store.
package keystore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/vaultsandbox/qrseal/internal/crypto"
	"github.com/vaultsandbox/qrseal/internal/envelope"
	"github.com/vaultsandbox/qrseal/internal/kv"
	"github.com/vaultsandbox/qrseal/internal/sealerr"
)

// Logical entries in the backing store.
const (
	KeyPairEntry  = "keypair"
	ContactsEntry = "contacts"
)

const recordVersion = 1

// FingerprintPrefix starts every key fingerprint.
const FingerprintPrefix = "qs1"

// KeyPair is the local keypair.
type KeyPair struct {
	Suite     crypto.Suite
	PublicKey []byte
	SecretKey []byte
	Seed      []byte // empty for keypairs imported from a bare secret key
	CreatedAt time.Time
}

// Contact is a remote public key the user has imported.
type Contact struct {
	Name       string
	Suite      crypto.Suite
	PublicKey  []byte
	ImportedAt time.Time
}

// Fingerprint returns the contact's key fingerprint.
func (c Contact) Fingerprint() string {
	return Fingerprint(c.PublicKey)
}

// Fingerprint returns a short printable identifier for a public key.
// Public keys are only ever logged as fingerprints.
func Fingerprint(publicKey []byte) string {
	h := blake2b.Sum256(publicKey)
	return FingerprintPrefix + base58.Encode(h[:16])
}

type keyPairRecord struct {
	Version   int       `json:"version"`
	Suite     uint8     `json:"suite"`
	PublicKey []byte    `json:"public_key"`
	SecretKey []byte    `json:"secret_key"`
	Seed      []byte    `json:"seed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type contactRecord struct {
	Name       string    `json:"name"`
	Suite      uint8     `json:"suite"`
	PublicKey  []byte    `json:"public_key"`
	ImportedAt time.Time `json:"imported_at"`
}

type contactsRecord struct {
	Version  int             `json:"version"`
	Contacts []contactRecord `json:"contacts"`
}

// Config configures a Store.
type Config struct {
	Backend kv.Store
	Logger  *logrus.Logger
	Now     func() time.Time
}

// Store is the KeyPair Store. It is safe for concurrent use; writers are
// serialized and readers see a consistent snapshot of one entry.
type Store struct {
	backend kv.Store
	log     *logrus.Logger
	now     func() time.Time

	mu sync.RWMutex
}

// New creates a Store over config.Backend.
func New(config Config) (*Store, error) {
	if config.Backend == nil {
		return nil, errors.New("keystore: backend is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Store{
		backend: config.Backend,
		log:     config.Logger,
		now:     config.Now,
	}, nil
}

// GenerateLocalKeyPair creates a fresh keypair and replaces the stored one.
// Envelopes sealed to the previous keypair can no longer be opened.
func (s *Store) GenerateLocalKeyPair(suite crypto.Suite) (*KeyPair, error) {
	kp, err := crypto.GenerateKeypair(suite)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyPairLocked(kp, "generated")
}

// LoadLocalKeyPair returns the stored keypair or sealerr.ErrNoKeyPair.
func (s *Store) LoadLocalKeyPair() (*KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadKeyPairLocked()
}

// LoadOrGenerate returns the stored keypair, generating one with suite
// when none exists yet.
func (s *Store) LoadOrGenerate(suite crypto.Suite) (*KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, err := s.loadKeyPairLocked()
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, sealerr.ErrNoKeyPair) {
		return nil, err
	}

	generated, err := crypto.GenerateKeypair(suite)
	if err != nil {
		return nil, err
	}
	return s.saveKeyPairLocked(generated, "generated")
}

// ImportSecretKey replaces the local keypair with one restored from an
// exported secret key text.
func (s *Store) ImportSecretKey(text string) (*KeyPair, error) {
	decoded, err := envelope.DecodeKey(text)
	if err != nil {
		return nil, err
	}
	if decoded.Kind != envelope.KindSecretKey {
		return nil, fmt.Errorf("%w: expected a secret key, got a %s", sealerr.ErrMalformedKey, decoded.Kind)
	}

	kp, err := crypto.KeypairFromSecretKey(crypto.Suite(decoded.Suite), decoded.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sealerr.ErrMalformedKey, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyPairLocked(kp, "imported")
}

// ImportKeyPair replaces the local keypair with raw key material. When seed
// is set it must derive secretKey.
func (s *Store) ImportKeyPair(suite crypto.Suite, secretKey, seed []byte) (*KeyPair, error) {
	var (
		kp  *crypto.Keypair
		err error
	)
	if len(seed) > 0 {
		kp, err = crypto.KeypairFromSeed(suite, seed)
		if err == nil && !bytes.Equal(kp.SecretKey, secretKey) {
			err = crypto.ErrKeyMismatch
		}
	} else {
		kp, err = crypto.KeypairFromSecretKey(suite, secretKey)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyPairLocked(kp, "imported")
}

// RestoreFromMnemonic replaces the local keypair with the one derived from
// a BIP-39 mnemonic produced by Mnemonic.
func (s *Store) RestoreFromMnemonic(mnemonic string, suite crypto.Suite) (*KeyPair, error) {
	entropy, err := EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	kp, err := crypto.KeypairFromSeed(suite, entropy)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveKeyPairLocked(kp, "restored")
}

// Reset removes the keypair and every contact.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(KeyPairEntry); err != nil {
		return fmt.Errorf("keystore: delete keypair: %w", err)
	}
	if err := s.backend.Delete(ContactsEntry); err != nil {
		return fmt.Errorf("keystore: delete contacts: %w", err)
	}
	s.log.Info("keystore reset")
	return nil
}

func (s *Store) loadKeyPairLocked() (*KeyPair, error) {
	raw, err := s.backend.Get(KeyPairEntry)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, sealerr.ErrNoKeyPair
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: load keypair: %w", err)
	}

	var rec keyPairRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("keystore: decode keypair: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: keypair record version %d", sealerr.ErrUnsupportedVersion, rec.Version)
	}

	kp, err := crypto.NewKeypairFromBytes(crypto.Suite(rec.Suite), rec.SecretKey, rec.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("keystore: stored keypair: %w", err)
	}

	return &KeyPair{
		Suite:     kp.Suite,
		PublicKey: kp.PublicKey,
		SecretKey: kp.SecretKey,
		Seed:      rec.Seed,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) saveKeyPairLocked(kp *crypto.Keypair, how string) (*KeyPair, error) {
	out := &KeyPair{
		Suite:     kp.Suite,
		PublicKey: kp.PublicKey,
		SecretKey: kp.SecretKey,
		Seed:      kp.Seed,
		CreatedAt: s.now().UTC(),
	}

	raw, err := json.Marshal(keyPairRecord{
		Version:   recordVersion,
		Suite:     uint8(out.Suite),
		PublicKey: out.PublicKey,
		SecretKey: out.SecretKey,
		Seed:      out.Seed,
		CreatedAt: out.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := s.backend.Set(KeyPairEntry, raw); err != nil {
		return nil, fmt.Errorf("keystore: save keypair: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"suite":       out.Suite.ShortName(),
		"fingerprint": Fingerprint(out.PublicKey),
	}).Infof("local keypair %s", how)

	return out, nil
}

// ExportPublicKey renders the public half of kp as shareable text.
func ExportPublicKey(kp *KeyPair) (string, error) {
	return envelope.EncodeKey(envelope.KindPublicKey, uint8(kp.Suite), kp.PublicKey)
}

// ExportSecretKey renders the secret half of kp as text. The text grants
// full control of the keypair and is only meant to be carried inside an
// envelope sealed to the user's other device.
func ExportSecretKey(kp *KeyPair) (string, error) {
	return envelope.EncodeKey(envelope.KindSecretKey, uint8(kp.Suite), kp.SecretKey)
}

// ParsePublicKey decodes and validates a public key text.
func ParsePublicKey(text string) (crypto.Suite, []byte, error) {
	decoded, err := envelope.DecodeKey(text)
	if err != nil {
		return 0, nil, err
	}
	if decoded.Kind != envelope.KindPublicKey {
		return 0, nil, fmt.Errorf("%w: expected a public key, got a %s", sealerr.ErrMalformedKey, decoded.Kind)
	}

	suite := crypto.Suite(decoded.Suite)
	if err := crypto.ValidatePublicKey(suite, decoded.Key); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", sealerr.ErrMalformedKey, err)
	}
	return suite, decoded.Key, nil
}

// ImportContact adds the public key in text under name. Importing a key
// that is already a contact updates its name.
func (s *Store) ImportContact(name, text string) (*Contact, error) {
	suite, publicKey, err := ParsePublicKey(text)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContactsLocked()
	if err != nil {
		return nil, err
	}

	contact := Contact{Name: name, Suite: suite, PublicKey: publicKey, ImportedAt: s.now().UTC()}
	updated := false
	for i := range contacts {
		if bytes.Equal(contacts[i].PublicKey, publicKey) {
			contacts[i].Name = name
			contact = contacts[i]
			updated = true
			break
		}
	}
	if !updated {
		contacts = append(contacts, contact)
	}

	if err := s.saveContactsLocked(contacts); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"fingerprint": contact.Fingerprint(),
		"updated":     updated,
	}).Info("contact imported")

	return &contact, nil
}

// ListContacts returns every contact sorted by name, then public key.
func (s *Store) ListContacts() ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts, err := s.loadContactsLocked()
	if err != nil {
		return nil, err
	}
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].Name != contacts[j].Name {
			return contacts[i].Name < contacts[j].Name
		}
		return bytes.Compare(contacts[i].PublicKey, contacts[j].PublicKey) < 0
	})
	return contacts, nil
}

// FindContact returns the contact with publicKey or sealerr.ErrContactNotFound.
func (s *Store) FindContact(publicKey []byte) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts, err := s.loadContactsLocked()
	if err != nil {
		return nil, err
	}
	for _, c := range contacts {
		if bytes.Equal(c.PublicKey, publicKey) {
			return &c, nil
		}
	}
	return nil, sealerr.ErrContactNotFound
}

// FindContactByName returns the first contact named name, compared case
// insensitively, or a fingerprint match.
func (s *Store) FindContactByName(name string) (*Contact, error) {
	contacts, err := s.ListContacts()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	for _, c := range contacts {
		if strings.EqualFold(c.Name, name) || c.Fingerprint() == name {
			return &c, nil
		}
	}
	return nil, sealerr.ErrContactNotFound
}

// RemoveContact deletes the contact with publicKey.
func (s *Store) RemoveContact(publicKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContactsLocked()
	if err != nil {
		return err
	}

	kept := contacts[:0]
	for _, c := range contacts {
		if !bytes.Equal(c.PublicKey, publicKey) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(contacts) {
		return sealerr.ErrContactNotFound
	}

	if err := s.saveContactsLocked(kept); err != nil {
		return err
	}
	s.log.WithField("fingerprint", Fingerprint(publicKey)).Info("contact removed")
	return nil
}

func (s *Store) loadContactsLocked() ([]Contact, error) {
	raw, err := s.backend.Get(ContactsEntry)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: load contacts: %w", err)
	}

	var rec contactsRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("keystore: decode contacts: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: contacts record version %d", sealerr.ErrUnsupportedVersion, rec.Version)
	}

	contacts := make([]Contact, 0, len(rec.Contacts))
	for _, c := range rec.Contacts {
		contacts = append(contacts, Contact{
			Name:       c.Name,
			Suite:      crypto.Suite(c.Suite),
			PublicKey:  c.PublicKey,
			ImportedAt: c.ImportedAt,
		})
	}
	return contacts, nil
}

func (s *Store) saveContactsLocked(contacts []Contact) error {
	rec := contactsRecord{Version: recordVersion, Contacts: make([]contactRecord, 0, len(contacts))}
	for _, c := range contacts {
		rec.Contacts = append(rec.Contacts, contactRecord{
			Name:       c.Name,
			Suite:      uint8(c.Suite),
			PublicKey:  c.PublicKey,
			ImportedAt: c.ImportedAt,
		})
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ContactsEntry, raw); err != nil {
		return fmt.Errorf("keystore: save contacts: %w", err)
	}
	return nil
}
