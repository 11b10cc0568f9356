// Package sealed encrypts a released will to the nominee's age identity so
// the download link alone is not enough to read it.
package sealed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
)

// Extension is appended to the name of a sealed package.
const Extension = ".age"

// ParseRecipient validates an age X25519 public key ("age1...").
func ParseRecipient(recipient string) (*age.X25519Recipient, error) {
	r, err := age.ParseX25519Recipient(strings.TrimSpace(recipient))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid age recipient: %v", lerrors.ErrInvalidConfig, err)
	}
	return r, nil
}

// SealFile encrypts path to recipient, writes path+".age", removes the
// plaintext and returns the sealed path.
func SealFile(path, recipient string) (string, error) {
	r, err := ParseRecipient(recipient)
	if err != nil {
		return "", err
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", lerrors.ErrIO, path, err)
	}
	defer in.Close()

	sealedPath := path + Extension
	dir := filepath.Dir(sealedPath)
	out, err := os.CreateTemp(dir, "."+filepath.Base(sealedPath)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: creating sealed package: %v", lerrors.ErrIO, err)
	}
	temporaryPath := out.Name()

	writeErr := func() error {
		w, err := age.Encrypt(out, r)
		if err != nil {
			return fmt.Errorf("starting age encryption: %w", err)
		}
		if _, err := io.Copy(w, in); err != nil {
			return fmt.Errorf("encrypting: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("finishing age encryption: %w", err)
		}
		return out.Sync()
	}()
	closeErr := out.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("%w: sealing %s: %v", lerrors.ErrIO, path, err)
	}
	if err := os.Chmod(temporaryPath, 0600); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	if err := os.Rename(temporaryPath, sealedPath); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("%w: %v", lerrors.ErrIO, err)
	}
	utils.SyncDir(dir)

	in.Close()
	if err := os.Remove(path); err != nil {
		return sealedPath, fmt.Errorf("%w: removing plaintext package: %v", lerrors.ErrIO, err)
	}
	return sealedPath, nil
}

// OpenFile decrypts a sealed package with an age identity ("AGE-SECRET-KEY-1...").
func OpenFile(path, identity string, w io.Writer) error {
	id, err := age.ParseX25519Identity(strings.TrimSpace(identity))
	if err != nil {
		return fmt.Errorf("%w: invalid age identity: %v", lerrors.ErrCipher, err)
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", lerrors.ErrIO, path, err)
	}
	defer in.Close()

	r, err := age.Decrypt(in, id)
	if err != nil {
		return fmt.Errorf("%w: %v", lerrors.ErrCipher, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("%w: decrypting %s: %v", lerrors.ErrCipher, path, err)
	}
	return nil
}
