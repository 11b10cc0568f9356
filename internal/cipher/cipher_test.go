package cipher

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
)

func testKey(t *testing.T, userID string) Key {
	t.Helper()
	key, err := DeriveKey(userID, []byte("correct horse"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	return key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	random := make([]byte, 64*1024)
	rng.Read(random)

	inputs := map[string][]byte{
		"empty":        {},
		"one byte":     {0x7f},
		"text":         bytes.Repeat([]byte("digital will "), 500),
		"random bytes": random,
	}

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		c, err := New(testKey(t, "alice"), WithCompression(tag))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		for name, plaintext := range inputs {
			t.Run(tag.String()+"/"+name, func(t *testing.T) {
				blob, err := c.Seal(plaintext)
				if err != nil {
					t.Fatalf("Seal() error = %v", err)
				}
				if blob[0] != BlobVersion {
					t.Errorf("blob version = %d, want %d", blob[0], BlobVersion)
				}
				got, err := c.Open(blob)
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				if !bytes.Equal(got, plaintext) {
					t.Errorf("Open() returned %d bytes, want %d", len(got), len(plaintext))
				}
			})
		}
	}
}

func TestSeal_CompressesText(t *testing.T) {
	c, err := New(testKey(t, "alice"), WithCompression(CompressionZstd))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	plaintext := bytes.Repeat([]byte("abc"), 10000)
	blob, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if len(blob) >= len(plaintext) {
		t.Errorf("sealed blob is %d bytes, expected compression below %d", len(blob), len(plaintext))
	}
}

func TestOpen_WrongKey(t *testing.T) {
	alice, _ := New(testKey(t, "alice"))
	bob, _ := New(testKey(t, "bob"))

	blob, err := alice.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := bob.Open(blob); !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("Open() with wrong key error = %v, want ErrCipher", err)
	}
}

func TestOpen_TamperedBlob(t *testing.T) {
	c, _ := New(testKey(t, "alice"))
	blob, err := c.Seal([]byte("secret payload"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	tests := map[string]func([]byte) []byte{
		"flipped ciphertext bit": func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b },
		"wrong version":          func(b []byte) []byte { b[0] = 0x02; return b },
		"truncated":              func(b []byte) []byte { return b[:headerSize+4] },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			tampered := mutate(append([]byte(nil), blob...))
			if _, err := c.Open(tampered); !errors.Is(err, lerrors.ErrCipher) {
				t.Errorf("Open() error = %v, want ErrCipher", err)
			}
		})
	}
}

func TestNew_RejectsZeroKey(t *testing.T) {
	if _, err := New(Key{}); !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("New(zero key) error = %v, want ErrCipher", err)
	}
}

func TestEncryptDecryptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "fragment.bin")
	enc := filepath.Join(dir, "sys_0001.dat")
	out := filepath.Join(dir, "restored.bin")

	plaintext := []byte("fragment contents\x00\x01\x02")
	if err := os.WriteFile(src, plaintext, 0600); err != nil {
		t.Fatal(err)
	}

	c, _ := New(testKey(t, "alice"), WithCompression(CompressionLZ4))
	if err := c.EncryptFile(src, enc); err != nil {
		t.Fatalf("EncryptFile() error = %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source was removed: %v", err)
	}
	if err := c.DecryptFile(enc, out); err != nil {
		t.Fatalf("DecryptFile() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("restored %q, want %q", got, plaintext)
	}
}

func TestDecryptFile_WrongKeyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain")
	enc := filepath.Join(dir, "enc")
	out := filepath.Join(dir, "out")
	if err := os.WriteFile(src, []byte("payload"), 0600); err != nil {
		t.Fatal(err)
	}

	alice, _ := New(testKey(t, "alice"))
	mallory, _ := New(testKey(t, "mallory"))
	if err := alice.EncryptFile(src, enc); err != nil {
		t.Fatalf("EncryptFile() error = %v", err)
	}
	if err := mallory.DecryptFile(enc, out); !errors.Is(err, lerrors.ErrCipher) {
		t.Fatalf("DecryptFile() error = %v, want ErrCipher", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output exists after failed decrypt (stat err = %v)", err)
	}
}

func TestEncryptFile_IOErrors(t *testing.T) {
	dir := t.TempDir()
	c, _ := New(testKey(t, "alice"))

	if err := c.EncryptFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out")); !errors.Is(err, lerrors.ErrIO) {
		t.Errorf("missing source error = %v, want ErrIO", err)
	}

	src := filepath.Join(dir, "src")
	if err := os.WriteFile(src, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := c.EncryptFile(src, filepath.Join(dir, "no-such-dir", "out")); !errors.Is(err, lerrors.ErrIO) {
		t.Errorf("unwritable destination error = %v, want ErrIO", err)
	}
}
