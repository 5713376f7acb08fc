package qrseal

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vaultsandbox/qrseal/internal/chunk"
	"github.com/vaultsandbox/qrseal/internal/crypto"
	"github.com/vaultsandbox/qrseal/internal/envelope"
	"github.com/vaultsandbox/qrseal/internal/keystore"
)

// KeyPair is the local keypair.
type KeyPair = keystore.KeyPair

// Contact is an imported public key with a display name.
type Contact = keystore.Contact

// Client seals messages to contacts and owns the local keypair.
// It is safe for concurrent use.
type Client struct {
	cfg      *clientConfig
	log      *logrus.Logger
	keys     *keystore.Store
	capacity int

	mu      sync.RWMutex
	keyPair *KeyPair
}

// New creates a client over storage, loading the local keypair or
// generating one on first use.
func New(storage Storage, opts ...Option) (*Client, error) {
	if storage == nil {
		return nil, ErrMissingStorage
	}

	cfg := &clientConfig{
		suite:     crypto.DefaultSuite,
		qrVersion: defaultQRVersion,
		qrMode:    defaultQRMode,
		ecLevel:   defaultECLevel,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logrus.New()
	}
	if !cfg.suite.Valid() {
		return nil, fmt.Errorf("%w: suite %d", ErrUnsupportedVersion, uint8(cfg.suite))
	}

	capacity := cfg.capacity()
	if capacity <= chunk.Overhead {
		return nil, fmt.Errorf("%w: %d bytes for QR version %d %s/%s", ErrCapacityTooSmall, capacity, cfg.qrVersion, cfg.qrMode, cfg.ecLevel)
	}

	keys, err := keystore.New(keystore.Config{
		Backend: storage,
		Logger:  cfg.logger,
		Now:     cfg.now,
	})
	if err != nil {
		return nil, err //coverage:ignore
	}

	kp, err := keys.LoadOrGenerate(cfg.suite)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}

	return &Client{
		cfg:      cfg,
		log:      cfg.logger,
		keys:     keys,
		capacity: capacity,
		keyPair:  kp,
	}, nil
}

// KeyPair returns the local keypair.
func (c *Client) KeyPair() *KeyPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keyPair
}

func (c *Client) setKeyPair(kp *KeyPair) {
	c.mu.Lock()
	c.keyPair = kp
	c.mu.Unlock()
}

// Capacity returns the maximum chunk record size in bytes.
func (c *Client) Capacity() int {
	return c.capacity
}

// PublicKeyText returns the local public key as shareable text.
func (c *Client) PublicKeyText() (string, error) {
	return keystore.ExportPublicKey(c.KeyPair())
}

// Fingerprint returns a short identifier of the local public key that two
// people can compare out of band.
func (c *Client) Fingerprint() string {
	return keystore.Fingerprint(c.KeyPair().PublicKey)
}

// Fingerprint returns the fingerprint of any public key.
func Fingerprint(publicKey []byte) string {
	return keystore.Fingerprint(publicKey)
}

// RegenerateKeyPair replaces the local keypair with a fresh one of the
// configured suite. Messages sealed to the old public key can no longer be
// opened, and contacts must import the new public key.
func (c *Client) RegenerateKeyPair() (*KeyPair, error) {
	kp, err := c.keys.GenerateLocalKeyPair(c.cfg.suite)
	if err != nil {
		return nil, err
	}
	c.setKeyPair(kp)
	return kp, nil
}

// ImportContact adds a public key text under a display name.
func (c *Client) ImportContact(name, publicKeyText string) (*Contact, error) {
	return c.keys.ImportContact(name, publicKeyText)
}

// Contacts lists contacts sorted by name.
func (c *Client) Contacts() ([]Contact, error) {
	return c.keys.ListContacts()
}

// FindContact looks a contact up by display name (case insensitive),
// fingerprint, or public key text.
func (c *Client) FindContact(query string) (*Contact, error) {
	if Classify(query) == TextPublicKey {
		_, publicKey, err := keystore.ParsePublicKey(query)
		if err != nil {
			return nil, err
		}
		return c.keys.FindContact(publicKey)
	}
	return c.keys.FindContactByName(query)
}

// RemoveContact deletes a contact.
func (c *Client) RemoveContact(contact *Contact) error {
	return c.keys.RemoveContact(contact.PublicKey)
}

// Seal encrypts plaintext to the holder of recipientPublicKeyText and
// returns the chunk texts to render as QR codes, in order.
func (c *Client) Seal(recipientPublicKeyText string, plaintext []byte) ([]string, error) {
	suite, publicKey, err := keystore.ParsePublicKey(recipientPublicKeyText)
	if err != nil {
		return nil, err
	}
	return c.seal(suite, publicKey, plaintext)
}

// SealToContact is Seal for an imported contact.
func (c *Client) SealToContact(contact *Contact, plaintext []byte) ([]string, error) {
	return c.seal(contact.Suite, contact.PublicKey, plaintext)
}

func (c *Client) seal(suite Suite, publicKey, plaintext []byte) ([]string, error) {
	env, err := crypto.Encrypt(suite, publicKey, plaintext)
	if err != nil {
		return nil, err
	}

	blob, err := envelope.Frame(env)
	if err != nil {
		return nil, err
	}

	chunks, err := chunk.Split(blob, c.capacity)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		if texts[i], err = chunk.EncodeText(ch); err != nil {
			return nil, err
		}
	}

	c.log.WithFields(logrus.Fields{
		"recipient": keystore.Fingerprint(publicKey),
		"session":   chunks[0].SessionID.String(),
		"chunks":    len(chunks),
		"bytes":     len(blob),
	}).Debug("message sealed")

	return texts, nil
}

// ExportSecretKey seals the local secret key to another device, identified
// by its public key text. The receiving device opens the chunks with its
// own Receiver and passes the plaintext to ImportSecretKey.
func (c *Client) ExportSecretKey(recipientPublicKeyText string) ([]string, error) {
	suite, publicKey, err := keystore.ParsePublicKey(recipientPublicKeyText)
	if err != nil {
		return nil, err
	}

	kp := c.KeyPair()
	if bytes.Equal(publicKey, kp.PublicKey) {
		return nil, fmt.Errorf("%w: refusing to seal the secret key to itself", ErrMalformedKey)
	}

	text, err := keystore.ExportSecretKey(kp)
	if err != nil {
		return nil, err
	}

	c.log.WithField("recipient", keystore.Fingerprint(publicKey)).Info("exporting secret key")
	return c.seal(suite, publicKey, []byte(text))
}

// ImportSecretKey replaces the local keypair with the one in a secret key
// text, as produced inside ExportSecretKey's message.
func (c *Client) ImportSecretKey(text string) (*KeyPair, error) {
	kp, err := c.keys.ImportSecretKey(text)
	if err != nil {
		return nil, err
	}
	c.setKeyPair(kp)
	return kp, nil
}

// Mnemonic returns the 24 recovery words of the local keypair.
func (c *Client) Mnemonic() (string, error) {
	return keystore.Mnemonic(c.KeyPair())
}

// RestoreFromMnemonic replaces the local keypair with the one derived from
// recovery words. The words do not record a suite, so the keypair is
// derived for the suite the client was configured with (see WithSuite).
// Restoring under another suite than the original yields a different
// keypair; compare the fingerprint afterwards. A backup file records the
// suite and has no such restriction.
func (c *Client) RestoreFromMnemonic(words string) (*KeyPair, error) {
	kp, err := c.keys.RestoreFromMnemonic(words, c.cfg.suite)
	if err != nil {
		return nil, err
	}
	c.setKeyPair(kp)
	return kp, nil
}

// Reset erases the keypair and contacts and generates a fresh keypair.
func (c *Client) Reset() (*KeyPair, error) {
	if err := c.keys.Reset(); err != nil {
		return nil, err
	}
	return c.RegenerateKeyPair()
}

// secretKey returns the suite and secret key used to open envelopes.
func (c *Client) secretKey() (Suite, []byte) {
	kp := c.KeyPair()
	return kp.Suite, kp.SecretKey
}
