package httphandler

import (
	"net/http"

	"github.com/jkroepke/fake-fortinet-server/internal/fortinet"
)

// New returns a ServeMux with the HTTP endpoints of the emulated gateway.
//
// The following routes are registered:
//   - GET  /                       start of a handshake, redirects to the login form.
//   - GET  /{realm}                same, with the realm forwarded.
//   - GET  /remote/login           serves the login form placeholder.
//   - POST /remote/logincheck      credential/challenge submission.
//   - GET  /remote/logout          protected by the auth cookie guard.
//
// All other paths respond with 404.
func New(flow *fortinet.Flow) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", noCacheHeaders(flow.Realm()))
	mux.Handle("GET /{realm}", noCacheHeaders(flow.Realm()))
	mux.Handle("GET /remote/login", noCacheHeaders(flow.Login()))
	mux.Handle("POST /remote/logincheck", noCacheHeaders(flow.LoginCheck()))
	mux.Handle("GET /remote/logout", noCacheHeaders(flow.RequireAuthCookie(flow.Logout())))

	return mux
}

func noCacheHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		h.ServeHTTP(w, r)
	})
}
