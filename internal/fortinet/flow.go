// Package fortinet implements the authentication handshake of a Fortinet
// SSL-VPN gateway closely enough that OpenConnect can log in against it. No
// credential is ever validated; each step only asserts that the client echoes
// back the state handed out by earlier steps.
package fortinet

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jkroepke/fake-fortinet-server/internal/session"
	"github.com/zitadel/logging"
)

// AuthCookieName is the cookie holding the opaque authentication token after
// a completed handshake.
const AuthCookieName = "SVPNCOOKIE"

// Step markers recorded in the session after each executed handshake step.
const (
	StepInitialGET       = "initial-GET"
	StepGetLoginForm     = "GET-login-form"
	StepSend2FAChallenge = "send-2FA-challenge"
	StepComplete2FA      = "complete-2FA"
	StepCompleteNon2FA   = "complete-non-2FA"
)

const (
	loginPath        = "/remote/login"
	successResponse  = "ret=1,redir=/remote/fortisslvpn_xml"
	logoutResponse   = "successful logout"
	challengePrompt  = "Please enter your token code"
	challengeFormat  = "ret=2,reqid=%s,polid=%s,grp=%s,portal=%s,magic=%s,tokeninfo=,chal_msg=%s"
	loginPageFormat  = "login page for realm %q"
	contentTypePlain = "text/plain"
)

// Flow is the handshake step dispatcher. Each exported method returns the
// http.Handler for one protocol endpoint; the POST /remote/logincheck handler
// selects among three transitions based on the stored want_2fa flag and the
// submitted form fields.
type Flow struct {
	logger  *slog.Logger
	store   *session.Store
	cookies *session.Cookies
}

// New creates a Flow on top of the given session store and transport cookie
// helper.
func New(logger *slog.Logger, store *session.Store, cookies *session.Cookies) *Flow {
	return &Flow{
		logger:  logger,
		store:   store,
		cookies: cookies,
	}
}

// Realm handles 'GET /' and 'GET /{realm}'. It resets the session, records
// whether the client asked for 2FA, and redirects to the login form with the
// realm forwarded. Repeating this request restarts the handshake.
func (f *Flow) Realm() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := f.loadSession(r)

		sess := session.Session{
			Step:    StepInitialGET,
			Want2FA: r.URL.Query().Has("want_2fa"),
		}

		if !f.saveSession(w, id, sess) {
			return
		}

		target := loginPath
		if realm := r.PathValue("realm"); realm != "" {
			target += "?realm=" + url.QueryEscape(realm)
		}

		http.Redirect(w, r, target, http.StatusFound)
	})
}

// Login handles 'GET /remote/login'. The realm query parameter is stored for
// verification of client state later; the response body is a placeholder the
// client is not expected to parse.
func (f *Flow) Login() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, sess := f.loadSession(r)

		realm := r.URL.Query().Get("realm")
		sess.Step = StepGetLoginForm
		sess.Set("realm", realm)

		if !f.saveSession(w, id, sess) {
			return
		}

		w.Header().Set("Content-Type", contentTypePlain)
		fmt.Fprintf(w, loginPageFormat, realm)
	})
}

// LoginCheck handles 'POST /remote/logincheck'. The transition is selected
// purely by the stored want_2fa flag and which of the code/credential fields
// are present in the form; anything else is an invalid transition.
func (f *Flow) LoginCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		id, sess := f.loadSession(r)
		ctx := logging.ToContext(r.Context(), f.logger.With(slog.String("step", sess.Step)))
		r = r.WithContext(ctx)

		switch {
		case sess.Want2FA && r.PostForm.Has("code"):
			f.complete2FA(w, r, id, sess)
		case sess.Want2FA && r.PostForm.Has("credential"):
			f.send2FAChallenge(w, r, id, sess)
		case r.PostForm.Has("credential"):
			f.completeNon2FA(w, r, id, sess)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// Logout handles 'GET /remote/logout'. It must be wrapped in
// RequireAuthCookie; by the time it runs the auth cookie is known to exist.
// The session is cleared and the cookie expired on the client.
func (f *Flow) Logout() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := f.cookies.Read(r); ok {
			f.store.Delete(id)
		}

		http.SetCookie(w, &http.Cookie{
			Name:   AuthCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})

		w.Header().Set("Content-Type", contentTypePlain)
		fmt.Fprint(w, logoutResponse)
	})
}

// RequireAuthCookie guards a protected action. A request without the auth
// cookie clears any residual session and is redirected to restart the login
// step; the cookie's content is never decoded, only its presence counts.
func (f *Flow) RequireAuthCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(AuthCookieName); err != nil || cookie.Value == "" {
			if id, ok := f.cookies.Read(r); ok {
				f.store.Delete(id)
			}

			http.Redirect(w, r, loginPath, http.StatusFound)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// send2FAChallenge is the LoginFormServed -> ChallengeSent transition. The
// submitted realm must match the stored one; the response carries all five
// correlation tokens and no cookie, since authentication is not complete yet.
func (f *Flow) send2FAChallenge(w http.ResponseWriter, r *http.Request, id string, sess session.Session) {
	if !f.guard(w, r, sess, "realm") {
		return
	}

	chal := NewChallenge()

	sess.Step = StepSend2FAChallenge
	sess.Set("username", r.PostForm.Get("username"))
	sess.Set("credential", r.PostForm.Get("credential"))
	sess.Set("reqid", chal.ReqID)
	sess.Set("polid", chal.PolID)
	sess.Set("magic", chal.Magic)
	sess.Set("portal", chal.Portal)
	sess.Set("grp", chal.Grp)

	if !f.saveSession(w, id, sess) {
		return
	}

	w.Header().Set("Content-Type", contentTypePlain)
	fmt.Fprintf(w, challengeFormat, chal.ReqID, chal.PolID, chal.Grp, chal.Portal, chal.Magic, challengePrompt)
}

// complete2FA is the ChallengeSent -> AuthenticatedAfterChallenge transition.
// The client must parrot back username and all correlation tokens from the
// challenge; the code itself is stored verbatim, never checked.
func (f *Flow) complete2FA(w http.ResponseWriter, r *http.Request, id string, sess session.Session) {
	if !f.guard(w, r, sess, "username", "reqid", "polid", "grp", "portal", "magic") {
		return
	}

	sess.Step = StepComplete2FA
	sess.Set("code", r.PostForm.Get("code"))

	f.completeLogin(w, r, id, sess)
}

// completeNon2FA is the LoginFormServed -> AuthenticatedDirect transition,
// identical in response shape to complete2FA but reached without a challenge.
func (f *Flow) completeNon2FA(w http.ResponseWriter, r *http.Request, id string, sess session.Session) {
	if !f.guard(w, r, sess, "realm") {
		return
	}

	sess.Step = StepCompleteNon2FA
	sess.Set("username", r.PostForm.Get("username"))
	sess.Set("credential", r.PostForm.Get("credential"))

	f.completeLogin(w, r, id, sess)
}

// completeLogin persists the final session state and hands its snapshot back
// as the authentication cookie.
func (f *Flow) completeLogin(w http.ResponseWriter, r *http.Request, id string, sess session.Session) {
	if !f.saveSession(w, id, sess) {
		return
	}

	token, err := session.Cookify(sess)
	if err != nil {
		f.contextLogger(r).Error("encode auth cookie", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:  AuthCookieName,
		Value: token,
		Path:  "/",
	})

	w.Header().Set("Content-Type", contentTypePlain)
	fmt.Fprint(w, successResponse)
}

// guard runs the consistency check and, on mismatch, reports the protocol
// violation as an assertion-style failure. The 500 status separates it from
// the 405 an invalid transition produces.
func (f *Flow) guard(w http.ResponseWriter, r *http.Request, sess session.Session, fields ...string) bool {
	err := checkFormAgainstSession(sess, r.PostForm, fields...)
	if err == nil {
		return true
	}

	var violation *ProtocolViolation
	if errors.As(err, &violation) {
		f.contextLogger(r).Warn("protocol violation",
			slog.String("field", violation.Field),
			slog.String("form", violation.Form),
			slog.String("session", violation.Session),
		)
	}

	http.Error(w, err.Error(), http.StatusInternalServerError)

	return false
}

// contextLogger returns the request-scoped logger, falling back to the flow
// logger for requests whose context never saw one.
func (f *Flow) contextLogger(r *http.Request) *slog.Logger {
	logger, ok := logging.FromContext(r.Context())
	if !ok {
		return f.logger
	}

	return logger
}

// loadSession resolves the transport cookie to the stored session. A missing,
// tampered or unknown cookie yields a fresh ID and an empty session.
func (f *Flow) loadSession(r *http.Request) (string, session.Session) {
	id, ok := f.cookies.Read(r)
	if !ok {
		return f.store.NewID(), session.Session{}
	}

	sess, err := f.store.Get(id)
	if err != nil {
		return id, session.Session{}
	}

	return id, sess
}

// saveSession persists the session and refreshes the transport cookie. It
// reports false after writing an error response.
func (f *Flow) saveSession(w http.ResponseWriter, id string, sess session.Session) bool {
	if err := f.store.Set(id, sess); err != nil {
		f.logger.Error("store session", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return false
	}

	if err := f.cookies.Write(w, id); err != nil {
		f.logger.Error("write session cookie", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return false
	}

	return true
}
