// Package session holds the per-client handshake state and its two cookie
// representations: the encrypted transport cookie carrying the session ID and
// the opaque SVPNCOOKIE snapshot handed out after authentication.
package session

import (
	"encoding/json"
	"fmt"
)

// Session is the server-side state of one authentication handshake. The wire
// protocol fields a client must echo back are kept in a dictionary so that a
// field the server never stored stays absent, which is not the same as a
// field stored with the empty string. Only Step and Want2FA exist in every
// session.
type Session struct {
	Step    string
	Want2FA bool

	fields map[string]string
}

// Set records a wire-protocol field value under its protocol name.
func (s *Session) Set(name, value string) {
	if s.fields == nil {
		s.fields = make(map[string]string)
	}

	s.fields[name] = value
}

// Field returns the stored value for a wire-protocol field name and whether
// any value, including the empty string, has been stored under it.
func (s Session) Field(name string) (string, bool) {
	value, ok := s.fields[name]

	return value, ok
}

// MarshalJSON flattens the session into a single JSON object: step, want_2fa
// and one key per stored wire field. Fields never stored do not appear.
func (s Session) MarshalJSON() ([]byte, error) {
	snapshot := make(map[string]any, len(s.fields)+2)

	for name, value := range s.fields {
		snapshot[name] = value
	}

	snapshot["step"] = s.Step
	snapshot["want_2fa"] = s.Want2FA

	jsonSession, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal session snapshot: %w", err)
	}

	return jsonSession, nil
}

// UnmarshalJSON reverses MarshalJSON. Unknown keys become wire fields.
func (s *Session) UnmarshalJSON(data []byte) error {
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("unmarshal session snapshot: %w", err)
	}

	*s = Session{}

	for name, raw := range snapshot {
		switch name {
		case "step":
			if err := json.Unmarshal(raw, &s.Step); err != nil {
				return fmt.Errorf("unmarshal session step: %w", err)
			}
		case "want_2fa":
			if err := json.Unmarshal(raw, &s.Want2FA); err != nil {
				return fmt.Errorf("unmarshal session want_2fa: %w", err)
			}
		default:
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("unmarshal session field %s: %w", name, err)
			}

			s.Set(name, value)
		}
	}

	return nil
}
