package cipher

import (
	"errors"
	"testing"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	a, err := DeriveKey("alice@example.com", []byte("pw"))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	b, _ := DeriveKey("alice@example.com", []byte("pw"))
	if a != b {
		t.Error("same inputs derived different keys")
	}

	other, _ := DeriveKey("alice@example.com", []byte("other"))
	if a == other {
		t.Error("different passphrases derived the same key")
	}
	bob, _ := DeriveKey("bob@example.com", []byte("pw"))
	if a == bob {
		t.Error("different users derived the same key")
	}
	if a.IsZero() {
		t.Error("derived key is all zeros")
	}
}

func TestDeriveKey_SeparatorPreventsAmbiguity(t *testing.T) {
	a, _ := DeriveKey("ab", []byte("c"))
	b, _ := DeriveKey("a", []byte("bc"))
	if a == b {
		t.Error("identifier/passphrase boundary is ambiguous")
	}
}

func TestDeriveKey_EmptyUser(t *testing.T) {
	if _, err := DeriveKey("", nil); !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("DeriveKey(\"\") error = %v, want ErrCipher", err)
	}
}

func TestLegacyByte(t *testing.T) {
	tests := []struct {
		userID string
		want   byte
	}{
		{"a", 97},
		{"ab", 195},
		{"user123", byte((117 + 115 + 101 + 114 + 49 + 50 + 51) % 256)},
		// 128 + 128 sums to 256, which wraps to zero.
		{"\u0080\u0080", 0xAA},
		{"", 0xAA},
	}
	for _, tt := range tests {
		if got := LegacyByte(tt.userID); got != tt.want {
			t.Errorf("LegacyByte(%q) = %#x, want %#x", tt.userID, got, tt.want)
		}
	}
}

func TestExpandByte(t *testing.T) {
	if _, err := ExpandByte(0); !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("ExpandByte(0) error = %v, want ErrCipher", err)
	}
	a, err := ExpandByte(0xAA)
	if err != nil {
		t.Fatalf("ExpandByte() error = %v", err)
	}
	b, _ := ExpandByte(0xAA)
	if a != b {
		t.Error("ExpandByte is not deterministic")
	}
	c, _ := ExpandByte(0xAB)
	if a == c {
		t.Error("different bytes expanded to the same key")
	}
}

func TestParseKey(t *testing.T) {
	if _, err := ParseKey(make([]byte, 16)); !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("short key error = %v, want ErrCipher", err)
	}
	if _, err := ParseKey(make([]byte, KeySize)); !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("zero key error = %v, want ErrCipher", err)
	}
	raw := make([]byte, KeySize)
	raw[5] = 1
	k, err := ParseKey(raw)
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}
	if k[5] != 1 {
		t.Error("ParseKey did not copy key material")
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		tag, err := ParseCompressionTag(name)
		if err != nil {
			t.Fatalf("ParseCompressionTag(%q) error = %v", name, err)
		}
		if tag.String() != name {
			t.Errorf("round trip %q -> %q", name, tag.String())
		}
	}
	if _, err := ParseCompressionTag("gzip"); err == nil {
		t.Error("expected error for unknown compression")
	}
}
