package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vaultsandbox/qrseal"
)

const usage = `usage: qrseal [--config FILE] [--env FILE] <command> [args]

commands:
  init                         create the local keypair if missing
  whoami                       show fingerprint, suite and chunk capacity
  export-key                   print the public key text
  add-contact NAME TEXT        import a contact's public key text
  contacts                     list contacts
  remove-contact QUERY         remove a contact by name, fingerprint or key
  seal CONTACT MESSAGE         seal MESSAGE ("-" reads stdin), one chunk per line
  open                         read chunk texts from stdin and print the message
  export-secret TEXT           seal the secret key to another device's public key
  import-secret TEXT           replace the keypair with a secret key text ("-" reads stdin)
  mnemonic                     print the recovery words
  restore WORDS...             replace the keypair from recovery words under the
                               configured suite, which the words do not record
  reset --yes                  erase the keypair and contacts
  capacity                     show chunk capacity per QR version
  backup FILE                  write a keypair backup file
  restore-file FILE            replace the keypair from a backup file`

// Config holds the process IO for run.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Getenv looks up environment variables.
	Getenv func(string) (string, bool)
}

// DefaultConfig returns a Config bound to the process.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.LookupEnv,
	}
}

// exitFunc is os.Exit, replaced in tests.
var exitFunc = os.Exit

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}

func run(args []string, cfg *Config) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.LookupEnv
	}

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(cfg.Stderr)
	configPath := flags.String("config", "", "config file (default "+defaultConfigPath+")")
	envPath := flags.String("env", defaultEnvPath, "optional .env file with QRSEAL_* variables")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return errors.New(usage)
	}
	command, cmdArgs := rest[0], rest[1:]

	lookup, err := loadDotEnv(*envPath, cfg.Getenv)
	if err != nil {
		return err
	}
	path, required := *configPath, true
	if path == "" {
		path, required = defaultConfigPath, false
	}
	settings, err := LoadSettings(path, required, lookup)
	if err != nil {
		return err
	}

	if command == "capacity" {
		return runCapacity(settings, cfg)
	}
	if _, ok := commands[command]; !ok {
		return fmt.Errorf("unknown command: %s\n%s", command, usage)
	}

	client, closeStorage, err := newClient(settings, cfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer closeStorage()

	return commands[command](client, cmdArgs, cfg)
}

func newClient(settings Settings, cfg *Config) (*qrseal.Client, func() error, error) {
	logger, err := settings.Logger(cfg.Stderr)
	if err != nil {
		return nil, nil, err
	}
	opts, err := settings.Options()
	if err != nil {
		return nil, nil, err
	}
	storage, closeStorage, err := settings.OpenStorage()
	if err != nil {
		return nil, nil, err
	}

	client, err := qrseal.New(storage, append(opts, qrseal.WithLogger(logger))...)
	if err != nil {
		_ = closeStorage()
		return nil, nil, err
	}
	return client, closeStorage, nil
}

type commandFunc func(client *qrseal.Client, args []string, cfg *Config) error

var commands = map[string]commandFunc{
	"init":           runWhoami,
	"whoami":         runWhoami,
	"export-key":     runExportKey,
	"add-contact":    runAddContact,
	"contacts":       runContacts,
	"remove-contact": runRemoveContact,
	"seal":           runSeal,
	"open":           runOpen,
	"export-secret":  runExportSecret,
	"import-secret":  runImportSecret,
	"mnemonic":       runMnemonic,
	"restore":        runRestore,
	"reset":          runReset,
	"backup":         runBackup,
	"restore-file":   runRestoreFile,
}

func needArgs(args []string, n int, form string) error {
	if len(args) != n {
		return fmt.Errorf("usage: qrseal %s", form)
	}
	return nil
}

// argOrStdin returns arg, or all of stdin when arg is "-".
func argOrStdin(arg string, cfg *Config) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cfg.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func runWhoami(client *qrseal.Client, args []string, cfg *Config) error {
	kp := client.KeyPair()
	fmt.Fprintf(cfg.Stdout, "fingerprint: %s\n", client.Fingerprint())
	fmt.Fprintf(cfg.Stdout, "suite:       %s\n", kp.Suite.ShortName())
	fmt.Fprintf(cfg.Stdout, "created:     %s\n", kp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(cfg.Stdout, "capacity:    %d bytes per chunk\n", client.Capacity())
	return nil
}

func runExportKey(client *qrseal.Client, args []string, cfg *Config) error {
	text, err := client.PublicKeyText()
	if err != nil {
		return err
	}
	fmt.Fprintln(cfg.Stdout, text)
	return nil
}

func runAddContact(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 2, "add-contact NAME TEXT"); err != nil {
		return err
	}
	contact, err := client.ImportContact(args[0], args[1])
	if err != nil {
		return fmt.Errorf("import contact: %w", err)
	}
	fmt.Fprintf(cfg.Stdout, "added %s (%s)\n", contact.Name, contact.Fingerprint())
	return nil
}

func runContacts(client *qrseal.Client, args []string, cfg *Config) error {
	contacts, err := client.Contacts()
	if err != nil {
		return err
	}
	for _, c := range contacts {
		fmt.Fprintf(cfg.Stdout, "%s\t%s\t%s\n", c.Name, c.Fingerprint(), c.Suite.ShortName())
	}
	return nil
}

func runRemoveContact(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 1, "remove-contact QUERY"); err != nil {
		return err
	}
	contact, err := client.FindContact(args[0])
	if err != nil {
		return err
	}
	if err := client.RemoveContact(contact); err != nil {
		return err
	}
	fmt.Fprintf(cfg.Stdout, "removed %s (%s)\n", contact.Name, contact.Fingerprint())
	return nil
}

func runSeal(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 2, "seal CONTACT MESSAGE"); err != nil {
		return err
	}
	message, err := argOrStdin(args[1], cfg)
	if err != nil {
		return err
	}

	var chunks []string
	if qrseal.Classify(args[0]) == qrseal.TextPublicKey {
		chunks, err = client.Seal(args[0], []byte(message))
	} else {
		contact, findErr := client.FindContact(args[0])
		if findErr != nil {
			return findErr
		}
		chunks, err = client.SealToContact(contact, []byte(message))
	}
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}

	return printChunks(chunks, cfg)
}

func printChunks(chunks []string, cfg *Config) error {
	for _, text := range chunks {
		if _, err := fmt.Fprintln(cfg.Stdout, text); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
	}
	return nil
}

// openMessages scans one chunk text per line and returns the opened
// messages. Corrupt chunks are reported and skipped.
func openMessages(client *qrseal.Client, cfg *Config) ([][]byte, error) {
	receiver := client.NewReceiver()
	var messages [][]byte

	scanner := bufio.NewScanner(cfg.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		// Space is a Base45 character, so only line endings are trimmed
		text := strings.Trim(scanner.Text(), "\r\t")
		if strings.TrimSpace(text) == "" {
			continue
		}

		result, err := receiver.Scan(text)
		switch {
		case errors.Is(err, qrseal.ErrChecksumMismatch):
			fmt.Fprintf(cfg.Stderr, "line %d: corrupt chunk, rescan it\n", line)
			continue
		case err != nil:
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if result.Complete {
			messages = append(messages, result.Plaintext)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}

	for _, p := range receiver.Pending() {
		fmt.Fprintf(cfg.Stderr, "session %s incomplete: %d/%d chunks, missing %v\n", p.SessionID, p.Received, p.Total, p.Missing)
	}
	if len(messages) == 0 {
		return nil, errors.New("no complete message")
	}
	return messages, nil
}

func runOpen(client *qrseal.Client, args []string, cfg *Config) error {
	messages, err := openMessages(client, cfg)
	if err != nil {
		return err
	}
	for _, m := range messages {
		if qrseal.Classify(string(m)) == qrseal.TextSecretKey {
			fmt.Fprintln(cfg.Stderr, "message is a secret key; pass it to import-secret")
		}
		if _, err := fmt.Fprintf(cfg.Stdout, "%s\n", m); err != nil {
			return fmt.Errorf("write message: %w", err)
		}
	}
	return nil
}

func runExportSecret(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 1, "export-secret TEXT"); err != nil {
		return err
	}
	chunks, err := client.ExportSecretKey(args[0])
	if err != nil {
		return fmt.Errorf("export secret key: %w", err)
	}
	return printChunks(chunks, cfg)
}

func runImportSecret(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 1, "import-secret TEXT"); err != nil {
		return err
	}
	text, err := argOrStdin(args[0], cfg)
	if err != nil {
		return err
	}
	if _, err := client.ImportSecretKey(strings.Trim(text, "\r\n\t")); err != nil {
		return fmt.Errorf("import secret key: %w", err)
	}
	fmt.Fprintf(cfg.Stdout, "imported keypair %s\n", client.Fingerprint())
	return nil
}

func runMnemonic(client *qrseal.Client, args []string, cfg *Config) error {
	words, err := client.Mnemonic()
	if err != nil {
		return err
	}
	fmt.Fprintln(cfg.Stdout, words)
	fmt.Fprintf(cfg.Stderr, "note: restore these words with suite %s configured\n", client.KeyPair().Suite.ShortName())
	return nil
}

func runRestore(client *qrseal.Client, args []string, cfg *Config) error {
	if len(args) == 0 {
		return errors.New("usage: qrseal restore WORDS...")
	}
	if _, err := client.RestoreFromMnemonic(strings.Join(args, " ")); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Fprintf(cfg.Stdout, "restored %s keypair %s\n", client.KeyPair().Suite.ShortName(), client.Fingerprint())
	return nil
}

func runReset(client *qrseal.Client, args []string, cfg *Config) error {
	if len(args) != 1 || args[0] != "--yes" {
		return errors.New("reset erases the keypair and contacts; rerun as: qrseal reset --yes")
	}
	if _, err := client.Reset(); err != nil {
		return err
	}
	fmt.Fprintf(cfg.Stdout, "new keypair %s\n", client.Fingerprint())
	return nil
}

func runCapacity(settings Settings, cfg *Config) error {
	mode, err := qrseal.ParseQRMode(settings.QR.Mode)
	if err != nil {
		return err
	}
	level, err := qrseal.ParseECLevel(settings.QR.Level)
	if err != nil {
		return err
	}

	fmt.Fprintf(cfg.Stdout, "mode %s, level %s\n", mode, level)
	for _, version := range []int{10, 20, 40} {
		fmt.Fprintf(cfg.Stdout, "version %2d: %4d characters, %4d bytes per chunk\n",
			version, qrseal.SymbolCapacity(version, mode, level), qrseal.ChunkCapacity(version, mode, level))
	}
	if settings.QR.ChunkCapacity > 0 {
		fmt.Fprintf(cfg.Stdout, "configured: %d bytes per chunk\n", settings.QR.ChunkCapacity)
	}
	return nil
}

func runBackup(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 1, "backup FILE"); err != nil {
		return err
	}
	if err := client.ExportKeyPairToFile(args[0]); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	fmt.Fprintf(cfg.Stdout, "wrote %s\n", args[0])
	return nil
}

func runRestoreFile(client *qrseal.Client, args []string, cfg *Config) error {
	if err := needArgs(args, 1, "restore-file FILE"); err != nil {
		return err
	}
	if _, err := client.ImportKeyPairFromFile(args[0]); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Fprintf(cfg.Stdout, "restored %s keypair %s\n", client.KeyPair().Suite.ShortName(), client.Fingerprint())
	return nil
}
