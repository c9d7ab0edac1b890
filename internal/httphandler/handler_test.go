package httphandler_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jkroepke/fake-fortinet-server/internal/crypto"
	"github.com/jkroepke/fake-fortinet-server/internal/fortinet"
	"github.com/jkroepke/fake-fortinet-server/internal/httphandler"
	"github.com/jkroepke/fake-fortinet-server/internal/session"
	"github.com/jkroepke/fake-fortinet-server/internal/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	logger := testutils.NewTestLogger()
	store := session.NewStore(t.Context(), testutils.Secret, time.Hour)
	cookies := session.NewCookies("fake", crypto.New(testutils.Secret))
	flow := fortinet.New(logger.Logger, store, cookies)

	server := httptest.NewServer(httphandler.New(flow))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{Jar: jar}

	return server, client
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return string(body)
}

func postForm(t *testing.T, client *http.Client, serverURL string, form url.Values) *http.Response {
	t.Helper()

	resp, err := client.PostForm(serverURL+"/remote/logincheck", form)
	require.NoError(t, err)

	return resp
}

// parseChallenge splits a 'ret=2,...' response line into its key/value pairs.
func parseChallenge(t *testing.T, body string) map[string]string {
	t.Helper()

	fields := make(map[string]string)

	for _, pair := range strings.Split(body, ",") {
		key, value, found := strings.Cut(pair, "=")
		require.True(t, found, "malformed pair %q in %q", pair, body)
		fields[key] = value
	}

	return fields
}

// requireField asserts that a wire field was stored in the session snapshot
// with the given value.
func requireField(t *testing.T, sess session.Session, name, want string) {
	t.Helper()

	got, ok := sess.Field(name)
	require.True(t, ok, "field %q not stored in session", name)
	assert.Equal(t, want, got)
}

func authCookie(t *testing.T, client *http.Client, serverURL string) *http.Cookie {
	t.Helper()

	u, err := url.Parse(serverURL)
	require.NoError(t, err)

	for _, cookie := range client.Jar.Cookies(u) {
		if cookie.Name == fortinet.AuthCookieName {
			return cookie
		}
	}

	return nil
}

func TestHandshakeNon2FA(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp")
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `login page for realm "corp"`)

	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {"corp"},
		"username":   {"alice"},
		"credential": {"hunter2"},
	})

	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ret=1,redir=/remote/fortisslvpn_xml", body)

	cookie := authCookie(t, client, server.URL)
	require.NotNil(t, cookie, "expected "+fortinet.AuthCookieName+" cookie after login")

	sess, err := session.Uncookify(cookie.Value)
	require.NoError(t, err)
	requireField(t, sess, "realm", "corp")
	requireField(t, sess, "username", "alice")
	requireField(t, sess, "credential", "hunter2")
	assert.Equal(t, fortinet.StepCompleteNon2FA, sess.Step)
	assert.False(t, sess.Want2FA)
}

func TestHandshakeNon2FAWithoutRealm(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/")
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `login page for realm ""`)

	// The stored empty realm must still be echoed back exactly.
	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {""},
		"username":   {"bob"},
		"credential": {"secret"},
	})

	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ret=1,redir=/remote/fortisslvpn_xml", body)
}

func TestHandshake2FA(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp?want_2fa=1")
	require.NoError(t, err)

	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {"corp"},
		"username":   {"alice"},
		"credential": {"hunter2"},
	})

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(body, "ret=2,"), "expected challenge, got %q", body)

	assert.Nil(t, authCookie(t, client, server.URL), "no auth cookie before challenge completion")

	challenge := parseChallenge(t, body)
	assert.Equal(t, "Please enter your token code", challenge["chal_msg"])
	assert.Empty(t, challenge["tokeninfo"])

	resp = postForm(t, client, server.URL, url.Values{
		"username": {"alice"},
		"code":     {"0000"},
		"reqid":    {challenge["reqid"]},
		"polid":    {challenge["polid"]},
		"grp":      {challenge["grp"]},
		"portal":   {challenge["portal"]},
		"magic":    {challenge["magic"]},
	})

	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ret=1,redir=/remote/fortisslvpn_xml", body)

	cookie := authCookie(t, client, server.URL)
	require.NotNil(t, cookie)

	sess, err := session.Uncookify(cookie.Value)
	require.NoError(t, err)
	requireField(t, sess, "code", "0000")
	requireField(t, sess, "reqid", challenge["reqid"])
	requireField(t, sess, "polid", challenge["polid"])
	requireField(t, sess, "magic", challenge["magic"])
	requireField(t, sess, "portal", challenge["portal"])
	requireField(t, sess, "grp", challenge["grp"])
	assert.Equal(t, fortinet.StepComplete2FA, sess.Step)
	assert.True(t, sess.Want2FA)
}

func TestMismatchedRealm(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp")
	require.NoError(t, err)
	readBody(t, resp)

	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {"evil"},
		"username":   {"alice"},
		"credential": {"hunter2"},
	})

	body := readBody(t, resp)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "at step")
	assert.Contains(t, body, `"realm"`)
	assert.NotContains(t, body, "ret=")
	assert.Nil(t, authCookie(t, client, server.URL))
}

func TestMismatchedChallengeField(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp?want_2fa=1")
	require.NoError(t, err)
	readBody(t, resp)

	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {"corp"},
		"username":   {"alice"},
		"credential": {"hunter2"},
	})

	challenge := parseChallenge(t, readBody(t, resp))

	resp = postForm(t, client, server.URL, url.Values{
		"username": {"alice"},
		"code":     {"0000"},
		"reqid":    {challenge["reqid"]},
		"polid":    {challenge["polid"]},
		"grp":      {challenge["grp"]},
		"portal":   {challenge["portal"]},
		"magic":    {"1-00000000"},
	})

	body := readBody(t, resp)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, `"magic"`)
	assert.NotContains(t, body, "ret=")
	assert.Nil(t, authCookie(t, client, server.URL))
}

func TestChallengeCompletionWithoutChallenge(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp?want_2fa=1")
	require.NoError(t, err)
	readBody(t, resp)

	// Jumping straight to the code submission must fail: no username or
	// correlation tokens were ever stored, and a field the server never
	// stored matches nothing.
	resp = postForm(t, client, server.URL, url.Values{
		"code": {"0000"},
	})

	body := readBody(t, resp)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "at step")
	assert.Contains(t, body, `"username"`)
	assert.NotContains(t, body, "ret=")
	assert.Nil(t, authCookie(t, client, server.URL))
}

func TestOmittedRealmField(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/")
	require.NoError(t, err)
	readBody(t, resp)

	// The stored realm is the empty string, but leaving the field out of the
	// form entirely is not the same as submitting it empty.
	resp = postForm(t, client, server.URL, url.Values{
		"username":   {"alice"},
		"credential": {"hunter2"},
	})

	body := readBody(t, resp)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, `"realm"`)
	assert.NotContains(t, body, "ret=")
	assert.Nil(t, authCookie(t, client, server.URL))
}

func TestInvalidTransition(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp")
	require.NoError(t, err)
	readBody(t, resp)

	// Neither credential nor code submitted.
	resp = postForm(t, client, server.URL, url.Values{
		"realm": {"corp"},
	})

	readBody(t, resp)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// A code without want_2fa matches no branch either.
	resp = postForm(t, client, server.URL, url.Values{
		"realm": {"corp"},
		"code":  {"0000"},
	})

	readBody(t, resp)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	// Without any prior authentication the logout is redirected to restart
	// the handshake instead of succeeding.
	noRedirectClient := &http.Client{
		Jar: client.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := noRedirectClient.Get(server.URL + "/remote/logout")
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/remote/login", resp.Header.Get("Location"))

	// Complete a handshake, then log out for real.
	resp, err = client.Get(server.URL + "/corp")
	require.NoError(t, err)
	readBody(t, resp)

	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {"corp"},
		"username":   {"alice"},
		"credential": {"hunter2"},
	})
	readBody(t, resp)
	require.NotNil(t, authCookie(t, client, server.URL))

	resp, err = client.Get(server.URL + "/remote/logout")
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "successful logout", body)
	assert.Nil(t, authCookie(t, client, server.URL), "logout must clear the auth cookie")

	// A second logout has no cookie anymore and redirects again.
	resp, err = noRedirectClient.Get(server.URL + "/remote/logout")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestHandshakeRestartResetsWant2FA(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/corp?want_2fa=1")
	require.NoError(t, err)
	readBody(t, resp)

	// Restart without the flag; the earlier want_2fa must not stick.
	resp, err = client.Get(server.URL + "/corp")
	require.NoError(t, err)
	readBody(t, resp)

	resp = postForm(t, client, server.URL, url.Values{
		"realm":      {"corp"},
		"username":   {"alice"},
		"credential": {"hunter2"},
	})

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ret=1,redir=/remote/fortisslvpn_xml", body, "restarted handshake must complete without challenge")
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()

	server, client := setupServer(t)

	resp, err := client.Get(server.URL + "/remote/unknown")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
