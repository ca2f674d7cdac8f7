package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/internal/keyring"
	"github.com/illarion/microkv/internal/password"
	"github.com/illarion/microkv/internal/security"
	"github.com/illarion/microkv/internal/server"
	"github.com/illarion/microkv/internal/storage"
	"github.com/illarion/microkv/pkg/microkv"
)

// storePath resolves the store file from --path or --db.
func storePath() (string, error) {
	if path := viper.GetString("path"); path != "" {
		return path, nil
	}
	return microkv.DefaultPath(viper.GetString("db"))
}

// resolveStore turns a diff argument into a path. Arguments that look like
// paths are used as is; anything else is a store name.
func resolveStore(arg string) (string, error) {
	if strings.ContainsRune(arg, filepath.Separator) || strings.HasSuffix(arg, security.StoreExtension) {
		return arg, nil
	}
	return microkv.DefaultPath(arg)
}

// storeID reads the id of an existing store without decrypting anything.
// It returns "" for a store that does not exist yet.
func storeID(path string) (string, error) {
	snap, err := storage.Load(path)
	if errors.Is(err, storage.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return snap.StoreID, nil
}

// GetPassword retrieves the password for the store at path: environment
// first, then the OS keyring, then a prompt. New stores ask for
// confirmation. The caller is responsible for calling crypto.ClearBytes on
// the returned password.
func GetPassword(path string) ([]byte, error) {
	if pw := password.FromEnv(); pw != nil {
		return pw, nil
	}

	id, err := storeID(path)
	if err != nil {
		return nil, err
	}
	if id != "" {
		if pw := keyring.Lookup(id); pw != nil {
			logger.Debug("using password from keyring", "store_id", id)
			return pw, nil
		}
	}

	prompt := fmt.Sprintf("Enter password for %s: ", filepath.Base(path))
	var pw []byte
	if id == "" {
		pw, err = password.ReadConfirm()
	} else {
		pw, err = password.Read(prompt)
	}
	if errors.Is(err, password.ErrNoTerminal) {
		// Piped input, e.g. `echo $PW | microkv get -k x`
		return password.ReadLine(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}

// openStore opens the store at path with the configured key source.
func openStore(path string) (*microkv.MicroKV, error) {
	opts := storeOptions()

	if viper.GetBool("unsafe") {
		return microkv.Open(path, append(opts, microkv.WithUnsafeNoEncryption())...)
	}

	pw, err := GetPassword(path)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pw)

	return openWithPassword(path, pw, opts...)
}

// openWithPassword opens the store at path and checks pw against it.
func openWithPassword(path string, pw []byte, opts ...microkv.Option) (*microkv.MicroKV, error) {
	db, err := microkv.Open(path, append(opts, microkv.WithPassword(pw))...)
	if err != nil {
		return nil, err
	}
	if err := verifyPassword(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// storeOptions returns the options every command opens a store with.
func storeOptions() []microkv.Option {
	return []microkv.Option{
		microkv.WithAutoCommit(viper.GetBool("auto_commit")),
		microkv.WithIterations(viper.GetInt("kdf.iterations")),
		microkv.WithLogger(logger),
	}
}

// verifyPassword decrypts one entry so a wrong password is caught before
// anything is written with it.
func verifyPassword(db *microkv.MicroKV) error {
	return db.View(func(tx *microkv.Tx) error {
		names, err := tx.Namespaces()
		if err != nil {
			return err
		}
		for _, name := range names {
			ns := tx.Namespace(name)
			keys, err := ns.Keys()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				continue
			}
			var probe json.RawMessage
			err = ns.GetInto(keys[0], &probe)
			crypto.ClearBytes(probe)
			if errors.Is(err, microkv.ErrAuthentication) {
				return err
			}
			// Anything but an authentication failure proves the key
			return nil
		}
		return nil
	})
}

// remoteAddr returns the --server address when commands go to a server.
func remoteAddr() string {
	return viper.GetString("server")
}

// HandleError prints err with a hint for the common cases
func HandleError(err error) {
	var remote *server.RemoteError
	if errors.As(err, &remote) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", remote.Message)
		if remote.RequestID != "" {
			fmt.Fprintf(os.Stderr, "Request ID: %s\n", remote.RequestID)
		}
		return
	}

	switch {
	case errors.Is(err, microkv.ErrAuthentication):
		fmt.Fprintf(os.Stderr, "Error: authentication failed: %s\n", err)
		fmt.Fprintf(os.Stderr, "Wrong password, or the store file was modified\n")
	case errors.Is(err, microkv.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: key not found\n")
	case errors.Is(err, microkv.ErrNotCommitted):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "The change was not saved to disk\n")
	case errors.Is(err, microkv.ErrCorruptStore):
		fmt.Fprintf(os.Stderr, "Error: store file is corrupt: %s\n", err)
	case errors.Is(err, microkv.ErrModeMismatch):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use --unsafe only with stores created with --unsafe\n")
	case errors.Is(err, password.ErrMismatch):
		fmt.Fprintf(os.Stderr, "Error: passwords do not match\n")
	case errors.Is(err, crypto.ErrEmptyPassword), errors.Is(err, password.ErrEmptyPrompt):
		fmt.Fprintf(os.Stderr, "Error: password required\n")
		fmt.Fprintf(os.Stderr, "Set %s or run in a terminal\n", password.EnvVar)
	case errors.Is(err, microkv.ErrSerialization):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}
