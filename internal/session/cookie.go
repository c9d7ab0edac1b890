package session

import (
	"net/http"

	"github.com/jkroepke/fake-fortinet-server/internal/crypto"
)

// Cookies translates between the transport session cookie and session IDs.
// The cookie value is the session ID encrypted with the configured secret; a
// cookie that fails to decrypt is treated as absent, so a tampering client
// simply starts a fresh handshake.
type Cookies struct {
	name   string
	cipher *crypto.Cipher
}

// NewCookies creates a Cookies helper for the given cookie name and cipher.
func NewCookies(name string, cipher *crypto.Cipher) *Cookies {
	return &Cookies{
		name:   name,
		cipher: cipher,
	}
}

// Read extracts the session ID from the request's transport cookie. The
// second return value reports whether a usable cookie was present.
func (c *Cookies) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	id, err := c.cipher.DecryptString(cookie.Value)
	if err != nil {
		return "", false
	}

	return id, true
}

// Write sets the transport cookie carrying the encrypted session ID.
func (c *Cookies) Write(w http.ResponseWriter, id string) error {
	value, err := c.cipher.EncryptString(id)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	})

	return nil
}
