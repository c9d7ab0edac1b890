package fortinet

import "fmt"

// ProtocolViolation reports that the client echoed back a form field whose
// value differs from what the server stored earlier in the handshake. It is
// fatal for the request and distinct from an ordinary invalid submission.
type ProtocolViolation struct {
	Step    string
	Field   string
	Form    string
	Session string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("at step %q: form %q %q != session %q %q",
		e.Step, e.Field, e.Form, e.Field, e.Session)
}
