package tokencodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const testSecret = "unit-test-secret"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(testSecret)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRejectsMissingOrPlaceholderKey(t *testing.T) {
	for _, secret := range []string{"", "   ", PlaceholderKey} {
		if _, err := New(secret); !errors.Is(err, ErrConfiguration) {
			t.Errorf("New(%q): expected ErrConfiguration, got %v", secret, err)
		}
	}
}

func TestDeriveKeyLength(t *testing.T) {
	key, err := DeriveKey(testSecret)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("Expected 32-byte key, got %d", len(key))
	}
}

func TestNilCodecReportsConfigurationError(t *testing.T) {
	var c *Codec
	if _, err := c.Encrypt("x"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Encrypt: expected ErrConfiguration, got %v", err)
	}
	if _, err := c.Decrypt("00:00"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Decrypt: expected ErrConfiguration, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	inputs := []string{
		"",
		"5",
		"12:stall-abc",
		"Budi|08123456789|budi@example.com|tanpa sambal",
		"Ñandú ☕ 漢字",
		strings.Repeat("x", 1000),
	}

	for _, in := range inputs {
		token, err := c.Encrypt(in)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", in, err)
		}
		if !LooksLikeToken(token) {
			t.Errorf("Token %q does not have ivHex:cipherHex shape", token)
		}
		out, err := c.Decrypt(token)
		if err != nil {
			t.Fatalf("Decrypt failed for %q: %v", in, err)
		}
		if out != in {
			t.Errorf("Round trip mismatch: got %q, want %q", out, in)
		}
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	c := newTestCodec(t)

	a, _ := c.Encrypt("7")
	b, _ := c.Encrypt("7")
	if a == b {
		t.Error("Expected different tokens for repeated encryption")
	}
	if strings.Split(a, ":")[0] == strings.Split(b, ":")[0] {
		t.Error("Expected different IVs for repeated encryption")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	c := newTestCodec(t)
	other, _ := New("another-secret")

	token, _ := c.Encrypt("12:stall-1")
	if out, err := other.Decrypt(token); err == nil && out == "12:stall-1" {
		t.Error("Expected a different key not to recover the plaintext")
	}
}

// plainCBCToken builds a token the way any peer sharing the secret does:
// AES-256-CBC over the PKCS#7 padded text with key SHA-256(secret).
func plainCBCToken(t *testing.T, secret, text string, iv []byte) string {
	t.Helper()
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	n := aes.BlockSize - len(text)%aes.BlockSize
	padded := append([]byte(text), bytes.Repeat([]byte{byte(n)}, n)...)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out)
}

func TestDecryptPlainCBCToken(t *testing.T) {
	c := newTestCodec(t)
	iv := []byte("0123456789abcdef")

	token := plainCBCToken(t, testSecret, "12:stall-9", iv)
	n, stall, err := c.DecryptTable(token)
	if err != nil {
		t.Fatalf("DecryptTable failed: %v", err)
	}
	if n != 12 || stall != "stall-9" {
		t.Errorf("Expected 12, stall-9; got %d, %q", n, stall)
	}
}

func TestEncryptMatchesPlainCBC(t *testing.T) {
	c := newTestCodec(t)
	iv := []byte("fedcba9876543210")
	c.rand = bytes.NewReader(iv)

	token, err := c.Encrypt("Budi|0812|budi@example.com|note")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if want := plainCBCToken(t, testSecret, "Budi|0812|budi@example.com|note", iv); token != want {
		t.Errorf("Token %q differs from plain CBC %q", token, want)
	}
}

func TestDecryptMalformed(t *testing.T) {
	c := newTestCodec(t)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"no separator", "abcdef", ErrMalformedToken},
		{"empty iv", ":abcd", ErrMalformedToken},
		{"empty ciphertext", "abcd:", ErrMalformedToken},
		{"three parts", "aa:bb:cc", ErrMalformedToken},
		{"non-hex iv", "zz:abcd", ErrMalformedToken},
		{"non-hex ciphertext", "abcd:xyz1", ErrMalformedToken},
		{"short iv", "abcd:00112233445566778899aabbccddeeff", ErrInvalidIVLength},
		{"partial block", "00112233445566778899aabbccddeeff:abcd", ErrDecryption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
