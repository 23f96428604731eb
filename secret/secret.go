// Package secret implements spec §4.2: AES-256-GCM seal/open for at-rest
// secrets, plus a case-insensitive substring search helper.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/bigtree-zedis/zedis-core/errs"
)

// key is the compile-time AES-256 key spec §4.2 calls for: a fixed 32-byte
// literal compiled into the package and shared by tests and the smoke
// binary.
var key = [32]byte{
	0x7a, 0x65, 0x64, 0x69, 0x73, 0x2d, 0x63, 0x6f,
	0x72, 0x65, 0x2d, 0x73, 0x65, 0x63, 0x72, 0x65,
	0x74, 0x2d, 0x6b, 0x65, 0x79, 0x2d, 0x33, 0x32,
	0x2d, 0x62, 0x79, 0x74, 0x65, 0x73, 0x21, 0x21,
}

func gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalid, err, "constructing AES cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalid, err, "constructing AES-GCM")
	}
	return aead, nil
}

// Seal encrypts plaintext with a fresh per-call nonce and returns
// base64(nonce || ciphertext+tag).
func Seal(plaintext string) (string, error) {
	aead, err := gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errs.Wrap(errs.KindIO, err, "generating nonce")
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. A tampered or foreign-key ciphertext always surfaces
// as errs.KindInvalid, never a panic.
func Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errs.Wrap(errs.KindInvalid, err, "decoding base64 secret")
	}
	aead, err := gcm()
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errs.Invalid("sealed secret too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errs.Wrap(errs.KindInvalid, err, "authenticating sealed secret")
	}
	return string(plaintext), nil
}

// ContainsFold reports whether haystack contains needle, ignoring case.
// needle is assumed already lowercased by the caller (spec §4.2). ASCII
// haystacks use a sliding-window byte compare; anything else falls back
// to lowercasing the haystack and using strings.Contains, since ASCII
// case-folding is wrong for the rest of Unicode.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if isASCII(haystack) {
		return asciiContainsFold(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func asciiContainsFold(haystack, needle string) bool {
	if len(needle) > len(haystack) {
		return false
	}
	for start := 0; start+len(needle) <= len(haystack); start++ {
		match := true
		for i := 0; i < len(needle); i++ {
			if asciiLower(haystack[start+i]) != needle[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func asciiLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
