package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/salsa20"
)

const nonceSize = 8
const tagSize = 16

// ErrCipherTextTooShort is returned when the ciphertext is shorter than nonce plus tag.
var ErrCipherTextTooShort = errors.New("ciphertext block size is too short")

// ErrHMACVerificationFailed is returned when the HMAC tag does not verify.
var ErrHMACVerificationFailed = errors.New("HMAC verification failed")

// Cipher encrypts and authenticates short strings using Salsa20 + HMAC-SHA256
// (Encrypt-then-MAC). It protects the transport session cookie against
// client-side tampering.
type Cipher struct {
	derivedKey *[32]byte
	secret     string
}

// New creates a Cipher from the given secret. The secret is stretched to a
// 32-byte Salsa20 key via SHA256.
func New(secret string) *Cipher {
	hash := sha256.Sum256([]byte(secret))

	return &Cipher{
		derivedKey: &hash,
		secret:     secret,
	}
}

// EncryptString encrypts plainText and returns nonce + ciphertext + tag as a
// base64url string suitable for a cookie value.
func (c *Cipher) EncryptString(plainText string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	cipherText := make([]byte, len(plainText))
	salsa20.XORKeyStream(cipherText, []byte(plainText), nonce, c.derivedKey)

	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write(nonce)
	h.Write(cipherText)
	tag := h.Sum(nil)[:tagSize]

	data := make([]byte, 0, len(nonce)+len(cipherText)+len(tag))
	data = append(data, nonce...)
	data = append(data, cipherText...)
	data = append(data, tag...)

	return base64.URLEncoding.EncodeToString(data), nil
}

// DecryptString reverses EncryptString. The HMAC tag is verified before
// decryption.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	if len(data) < nonceSize+1+tagSize {
		return "", ErrCipherTextTooShort
	}

	nonce := data[:nonceSize]
	cipherText := data[nonceSize : len(data)-tagSize]
	tag := data[len(data)-tagSize:]

	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write(nonce)
	h.Write(cipherText)

	if !hmac.Equal(tag, h.Sum(nil)[:tagSize]) {
		return "", ErrHMACVerificationFailed
	}

	plainText := make([]byte, len(cipherText))
	salsa20.XORKeyStream(plainText, cipherText, nonce, c.derivedKey)

	return string(plainText), nil
}
