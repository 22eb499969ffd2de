// Package tokencodec encrypts short strings (table identity, customer details)
// into URL-safe tokens of the form ivHex:cipherHex using AES-256-CBC.
package tokencodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// PlaceholderKey is the value shipped in example env files. It is never accepted.
const PlaceholderKey = "your-secret-encryption-key-change-this"

const ivSize = aes.BlockSize

var (
	ErrConfiguration   = errors.New("encryption key is not configured")
	ErrMalformedToken  = errors.New("malformed token")
	ErrInvalidIVLength = errors.New("invalid iv length")
	ErrDecryption      = errors.New("token decryption failed")
	ErrFormat          = errors.New("unexpected token payload format")
)

// Codec holds the derived key. A nil *Codec reports ErrConfiguration from every method.
type Codec struct {
	key  []byte
	rand io.Reader
}

// DeriveKey returns SHA-256(secret).
func DeriveKey(secret string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" || secret == PlaceholderKey {
		return nil, ErrConfiguration
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

func New(secret string) (*Codec, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Codec{key: key, rand: rand.Reader}, nil
}

// Encrypt returns ivHex:cipherHex, the PKCS#7 padded plaintext under
// AES-256-CBC. A fresh random IV is drawn for every call.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if c == nil {
		return "", ErrConfiguration
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	payload := pad([]byte(plaintext))

	out := make([]byte, len(payload))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, payload)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (c *Codec) Decrypt(token string) (string, error) {
	if c == nil {
		return "", ErrConfiguration
	}

	iv, ct, err := split(token)
	if err != nil {
		return "", err
	}
	if len(iv) != ivSize {
		return "", ErrInvalidIVLength
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrDecryption, len(ct))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	text, err := unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(text) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrDecryption)
	}

	return string(text), nil
}

// LooksLikeToken reports whether s has the hexpart:hexpart shape.
func LooksLikeToken(s string) bool {
	_, _, err := split(s)
	return err == nil
}

func split(token string) ([]byte, []byte, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil, ErrMalformedToken
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv is not hex", ErrMalformedToken)
	}
	ct, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ciphertext is not hex", ErrMalformedToken)
	}

	return iv, ct, nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
		}
	}
	return b[:len(b)-n], nil
}
