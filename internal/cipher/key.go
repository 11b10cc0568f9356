package cipher

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length in bytes of a user key.
const KeySize = 32

// Key is the symmetric key protecting every fragment of a will.
type Key [KeySize]byte

var (
	hkdfSaltUser   = []byte("lastwill.user.v1")
	hkdfSaltLegacy = []byte("lastwill.legacy.v1")
	hkdfInfo       = []byte("lastwill.fragment.v1")
)

// IsZero reports whether every byte of the key is zero.
func (k Key) IsZero() bool {
	var zero Key
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// ParseKey copies raw key material into a Key.
func ParseKey(raw []byte) (Key, error) {
	var k Key
	if len(raw) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", lerrors.ErrCipher, KeySize, len(raw))
	}
	copy(k[:], raw)
	if k.IsZero() {
		return k, fmt.Errorf("%w: key is all zeros", lerrors.ErrCipher)
	}
	return k, nil
}

// DeriveKey derives the user key from the user identifier and an optional
// passphrase.
func DeriveKey(userID string, passphrase []byte) (Key, error) {
	if userID == "" {
		return Key{}, fmt.Errorf("%w: user identifier is empty", lerrors.ErrCipher)
	}
	secret := make([]byte, 0, len(userID)+1+len(passphrase))
	secret = append(secret, userID...)
	secret = append(secret, 0)
	secret = append(secret, passphrase...)
	return deriveKey(secret, hkdfSaltUser)
}

// LegacyByte computes the single-byte key used by earlier wills: the sum
// of the identifier's code points modulo 256, with zero replaced by 0xAA.
func LegacyByte(userID string) byte {
	sum := 0
	for _, r := range userID {
		sum += int(r)
	}
	b := byte(sum % 256)
	if b == 0 {
		b = 0xAA
	}
	return b
}

// ExpandByte stretches a legacy key byte into a full user key.
func ExpandByte(b byte) (Key, error) {
	if b == 0 {
		return Key{}, fmt.Errorf("%w: key byte must not be zero", lerrors.ErrCipher)
	}
	return deriveKey([]byte{b}, hkdfSaltLegacy)
}

func deriveKey(secret, salt []byte) (Key, error) {
	raw := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, secret, salt, hkdfInfo)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return Key{}, fmt.Errorf("%w: deriving key: %v", lerrors.ErrCipher, err)
	}
	return ParseKey(raw)
}
