package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cookify encodes the session snapshot as base64url over JSON, the exact
// format of the SVPNCOOKIE value. The server never decodes this token again;
// it only checks for its presence on protected actions.
func Cookify(sess Session) (string, error) {
	jsonSession, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	return base64.URLEncoding.EncodeToString(jsonSession), nil
}

// Uncookify decodes a Cookify token back into a Session. Field order in the
// token is irrelevant. Used by tests and diagnostics only.
func Uncookify(token string) (Session, error) {
	jsonSession, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Session{}, fmt.Errorf("decode base64: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(jsonSession, &sess); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return sess, nil
}
