package fortinet

import (
	"net/url"

	"github.com/jkroepke/fake-fortinet-server/internal/session"
)

// checkFormAgainstSession verifies that every named field was submitted in
// the form and exactly matches the value stored in the session. Presence is
// part of the check on both sides: a field the server never stored matches
// nothing, and an omitted form field is not the same as one submitted empty.
// The first mismatch aborts with a ProtocolViolation carrying the step the
// session was in; there is no partial success.
func checkFormAgainstSession(sess session.Session, form url.Values, fields ...string) error {
	for _, field := range fields {
		stored, known := sess.Field(field)

		if !known || !form.Has(field) || stored != form.Get(field) {
			return &ProtocolViolation{
				Step:    sess.Step,
				Field:   field,
				Form:    form.Get(field),
				Session: stored,
			}
		}
	}

	return nil
}
