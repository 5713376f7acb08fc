package qrseal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vaultsandbox/qrseal/internal/crypto"
)

// BackupVersion is the current keypair backup format version.
const BackupVersion = 1

// ExportedKeyPair contains all data needed to restore the local keypair.
// WARNING: this contains private key material - handle securely.
//
// The public key is not included; it is derived from the secret key.
type ExportedKeyPair struct {
	// Version is the backup format version. MUST be 1.
	Version int `json:"version"`
	// Suite is the suite short name, "x25519" or "mlkem768".
	Suite string `json:"suite"`
	// SecretKey is the raw secret key (base64url, no padding).
	SecretKey string `json:"secretKey"`
	// Seed is the keypair entropy (base64url). Empty for keypairs
	// imported from a bare secret key.
	Seed string `json:"seed,omitempty"`
	// Fingerprint identifies the public key. Informational only.
	Fingerprint string `json:"fingerprint"`
	// ExportedAt is the export timestamp (ISO 8601). Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// decodedKeyPair holds the validated fields of an ExportedKeyPair.
type decodedKeyPair struct {
	suite     Suite
	secretKey []byte
	seed      []byte
}

func (e *ExportedKeyPair) decode() (*decodedKeyPair, error) {
	if e.Version != BackupVersion {
		return nil, fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImportData, e.Version, BackupVersion)
	}

	suite, err := crypto.ParseSuite(e.Suite)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}

	if e.SecretKey == "" {
		return nil, fmt.Errorf("%w: secretKey is required", ErrInvalidImportData)
	}
	secretKey, err := base64.RawURLEncoding.DecodeString(e.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid secretKey encoding", ErrInvalidImportData)
	}
	if _, err := crypto.DerivePublicKey(suite, secretKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}

	var seed []byte
	if e.Seed != "" {
		seed, err = base64.RawURLEncoding.DecodeString(e.Seed)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid seed encoding", ErrInvalidImportData)
		}
		if len(seed) != crypto.SeedEntropySize {
			return nil, fmt.Errorf("%w: seed size %d, expected %d", ErrInvalidImportData, len(seed), crypto.SeedEntropySize)
		}
	}

	return &decodedKeyPair{suite: suite, secretKey: secretKey, seed: seed}, nil
}

// Validate checks that the backup can be imported.
func (e *ExportedKeyPair) Validate() error {
	_, err := e.decode()
	return err
}

// ExportKeyPair returns a backup of the local keypair.
func (c *Client) ExportKeyPair() *ExportedKeyPair {
	kp := c.KeyPair()

	exported := &ExportedKeyPair{
		Version:     BackupVersion,
		Suite:       kp.Suite.ShortName(),
		SecretKey:   base64.RawURLEncoding.EncodeToString(kp.SecretKey),
		Fingerprint: Fingerprint(kp.PublicKey),
		ExportedAt:  time.Now().UTC(),
	}
	if c.cfg.now != nil {
		exported.ExportedAt = c.cfg.now().UTC()
	}
	if len(kp.Seed) > 0 {
		exported.Seed = base64.RawURLEncoding.EncodeToString(kp.Seed)
	}
	return exported
}

// ImportKeyPair replaces the local keypair with a backup.
func (c *Client) ImportKeyPair(data *ExportedKeyPair) (*KeyPair, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: backup data cannot be nil", ErrInvalidImportData)
	}

	decoded, err := data.decode()
	if err != nil {
		return nil, err
	}

	kp, err := c.keys.ImportKeyPair(decoded.suite, decoded.secretKey, decoded.seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportData, err)
	}
	c.setKeyPair(kp)
	return kp, nil
}

// ExportKeyPairToFile writes a keypair backup as JSON with secure
// permissions (0600).
func (c *Client) ExportKeyPairToFile(filePath string) error {
	jsonData, err := json.MarshalIndent(c.ExportKeyPair(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keypair backup: %w", err) //coverage:ignore
	}

	if err := os.WriteFile(filePath, jsonData, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// ImportKeyPairFromFile restores the local keypair from a JSON backup file.
func (c *Client) ImportKeyPairFromFile(filePath string) (*KeyPair, error) {
	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var data ExportedKeyPair
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("parse keypair backup: %w", err)
	}

	return c.ImportKeyPair(&data)
}
