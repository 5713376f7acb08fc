package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vaultsandbox/qrseal"
)

const (
	defaultConfigPath = "qrseal.yaml"
	defaultEnvPath    = ".env"
	envPrefix         = "QRSEAL_"
)

// Storage backends.
const (
	backendFile   = "file"
	backendBadger = "badger"
	backendMemory = "memory"
)

// Settings is the CLI configuration file.
type Settings struct {
	DataDir    string     `yaml:"dataDir"`
	Backend    string     `yaml:"backend"`
	Passphrase string     `yaml:"passphrase"`
	Suite      string     `yaml:"suite"`
	QR         QRSettings `yaml:"qr"`
	LogLevel   string     `yaml:"logLevel"`
}

// QRSettings sizes chunks for the QR codes the user's scanner reads.
type QRSettings struct {
	Version       int    `yaml:"version"`
	Mode          string `yaml:"mode"`
	Level         string `yaml:"level"`
	ChunkCapacity int    `yaml:"chunkCapacity"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		DataDir:  ".qrseal",
		Backend:  backendFile,
		Suite:    "x25519",
		LogLevel: "warn",
		QR: QRSettings{
			Version: 40,
			Mode:    "byte",
			Level:   "H",
		},
	}
}

// LoadSettings reads the YAML file at path over the defaults, then applies
// QRSEAL_* overrides from lookup. A missing file is only an error when
// required is set.
func LoadSettings(path string, required bool, lookup func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return s, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return s, fmt.Errorf("read config: %w", err)
	}

	if err := s.applyEnv(lookup); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"DATA_DIR":   &s.DataDir,
		"BACKEND":    &s.Backend,
		"PASSPHRASE": &s.Passphrase,
		"SUITE":      &s.Suite,
		"QR_MODE":    &s.QR.Mode,
		"QR_LEVEL":   &s.QR.Level,
		"LOG_LEVEL":  &s.LogLevel,
	}
	for name, dst := range str {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"QR_VERSION":     &s.QR.Version,
		"CHUNK_CAPACITY": &s.QR.ChunkCapacity,
	}
	for name, dst := range ints {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}
	return nil
}

// loadDotEnv reads an optional .env file. Variables already set in the
// process environment take precedence over the file.
func loadDotEnv(path string, getenv func(string) (string, bool)) (func(string) (string, bool), error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		values = map[string]string{}
	}
	return func(key string) (string, bool) {
		if v, ok := getenv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

// Logger builds the logger writing to w.
func (s Settings) Logger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	return logger, nil
}

// Options converts the settings into client options.
func (s Settings) Options() ([]qrseal.Option, error) {
	suite, err := qrseal.ParseSuite(s.Suite)
	if err != nil {
		return nil, err
	}
	mode, err := qrseal.ParseQRMode(s.QR.Mode)
	if err != nil {
		return nil, err
	}
	level, err := qrseal.ParseECLevel(s.QR.Level)
	if err != nil {
		return nil, err
	}

	opts := []qrseal.Option{
		qrseal.WithSuite(suite),
		qrseal.WithQRProfile(s.QR.Version, mode, level),
	}
	if s.QR.ChunkCapacity > 0 {
		opts = append(opts, qrseal.WithChunkCapacity(s.QR.ChunkCapacity))
	}
	return opts, nil
}

// OpenStorage opens the configured backend. The returned function releases
// it.
func (s Settings) OpenStorage() (qrseal.Storage, func() error, error) {
	noop := func() error { return nil }

	var (
		storage qrseal.Storage
		closer  = noop
	)
	switch strings.ToLower(s.Backend) {
	case backendFile, "":
		fileStorage, err := qrseal.NewFileStorage(s.DataDir)
		if err != nil {
			return nil, nil, err
		}
		storage = fileStorage
	case backendBadger:
		db, err := qrseal.NewBadgerStorage(s.DataDir)
		if err != nil {
			return nil, nil, err
		}
		storage, closer = db, db.Close
	case backendMemory:
		storage = qrseal.NewMemoryStorage()
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", s.Backend)
	}

	if s.Passphrase != "" {
		sealed, err := qrseal.NewSealedStorage(storage, s.Passphrase)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		storage = sealed
	}
	return storage, closer, nil
}
