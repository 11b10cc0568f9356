package cipher

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"golang.org/x/crypto/nacl/secretbox"
)

// BlobVersion is the first byte of every sealed blob.
const BlobVersion byte = 0x01

const (
	nonceSize  = 24
	headerSize = 1 + nonceSize
	innerSize  = 1 + 8
)

// Cipher seals and opens fragments with a single user key.
type Cipher struct {
	key         Key
	compression CompressionTag
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithCompression sets the compression applied before sealing. The default
// is CompressionNone.
func WithCompression(tag CompressionTag) Option {
	return func(c *Cipher) {
		c.compression = tag
	}
}

// New returns a Cipher for key. An all-zero key is rejected.
func New(key Key, opts ...Option) (*Cipher, error) {
	if key.IsZero() {
		return nil, fmt.Errorf("%w: key is all zeros", lerrors.ErrCipher)
	}
	c := &Cipher{key: key}
	for _, opt := range opts {
		opt(c)
	}
	if c.compression > CompressionZstd {
		return nil, fmt.Errorf("%w: unsupported compression tag %d", lerrors.ErrCipher, c.compression)
	}
	return c, nil
}

// Seal encrypts plaintext into a blob.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	body, tag, err := compress(plaintext, c.compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrCipher, err)
	}

	inner := make([]byte, innerSize+len(body))
	inner[0] = byte(tag)
	binary.BigEndian.PutUint64(inner[1:innerSize], uint64(len(plaintext)))
	copy(inner[innerSize:], body)

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: generating nonce: %v", lerrors.ErrCipher, err)
	}

	out := make([]byte, headerSize, headerSize+len(inner)+secretbox.Overhead)
	out[0] = BlobVersion
	copy(out[1:], nonce[:])
	key := [KeySize]byte(c.key)
	return secretbox.Seal(out, inner, &nonce, &key), nil
}

// Open decrypts a blob produced by Seal.
func (c *Cipher) Open(blob []byte) ([]byte, error) {
	if len(blob) < headerSize+secretbox.Overhead+innerSize {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", lerrors.ErrCipher, len(blob))
	}
	if blob[0] != BlobVersion {
		return nil, fmt.Errorf("%w: unsupported blob version %d", lerrors.ErrCipher, blob[0])
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[1:headerSize])
	key := [KeySize]byte(c.key)
	inner, ok := secretbox.Open(nil, blob[headerSize:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("%w: authentication failed (wrong key or corrupted fragment)", lerrors.ErrCipher)
	}

	tag := CompressionTag(inner[0])
	size := binary.BigEndian.Uint64(inner[1:innerSize])
	if size > uint64(math.MaxInt) {
		return nil, fmt.Errorf("%w: declared size %d is too large", lerrors.ErrCipher, size)
	}
	plaintext, err := decompress(inner[innerSize:], tag, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrCipher, err)
	}
	return plaintext, nil
}

// EncryptFile reads src and writes its sealed form to dst, replacing any
// existing file. src is never modified.
func (c *Cipher) EncryptFile(src, dst string) error {
	return c.transformFile(src, dst, c.Seal)
}

// DecryptFile reads the sealed src and writes the plaintext to dst. On an
// authentication failure dst is left untouched.
func (c *Cipher) DecryptFile(src, dst string) error {
	return c.transformFile(src, dst, c.Open)
}

func (c *Cipher) transformFile(src, dst string, fn func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", lerrors.ErrIO, src, err)
	}
	out, err := fn(data)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if err := utils.WriteFileAtomic(dst, out, 0600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", lerrors.ErrIO, dst, err)
	}
	return nil
}
