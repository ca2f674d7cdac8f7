// Package password reads store passwords from the environment or the
// terminal.
package password

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/microkv/internal/crypto"
	"golang.org/x/term"
)

const (
	EnvVar = "MICROKV_PASSWORD"

	// MaxLength bounds a password read from a pipe
	MaxLength = 1024
)

var (
	ErrMismatch    = errors.New("passwords do not match")
	ErrNoTerminal  = errors.New("no terminal to prompt for a password")
	ErrEmptyPrompt = errors.New("empty password entered")
	ErrTooLong     = errors.New("password too long")
)

// Read prompts on stderr and reads a password from the terminal without
// echoing it. The caller clears the returned buffer.
func Read(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoTerminal
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // New line after password

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return nil, ErrEmptyPrompt
	}
	return password, nil
}

// ReadConfirm reads a password twice and ensures both entries match.
func ReadConfirm() ([]byte, error) {
	password1, err := Read("Enter password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := Read("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	return confirm(password1, password2)
}

func confirm(password1, password2 []byte) ([]byte, error) {
	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, ErrMismatch
	}

	// Return a copy; both inputs are cleared by the caller
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// FromEnv returns a copy of MICROKV_PASSWORD, or nil if it is unset.
func FromEnv() []byte {
	password := os.Getenv(EnvVar)
	if password == "" {
		return nil
	}
	return []byte(password)
}

// ReadLine reads one line from r, for passwords piped on stdin.
// The trailing newline is dropped. The line is read into a single buffer
// of MaxLength bytes that is never reallocated.
func ReadLine(r io.Reader) ([]byte, error) {
	buf := make([]byte, MaxLength)
	n := 0
	b := make([]byte, 1)
	for {
		m, err := r.Read(b)
		if m == 1 {
			if b[0] == '\n' {
				break
			}
			if n == len(buf) {
				b[0] = 0
				crypto.ClearBytes(buf)
				return nil, ErrTooLong
			}
			buf[n] = b[0]
			n++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			b[0] = 0
			crypto.ClearBytes(buf)
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
	}
	b[0] = 0

	if n > 0 && buf[n-1] == '\r' {
		buf[n-1] = 0
		n--
	}
	if n == 0 {
		return nil, ErrEmptyPrompt
	}
	return buf[:n], nil
}
