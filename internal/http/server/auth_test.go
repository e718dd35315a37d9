package server_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blaze/internal/http/server"
)

func TestLoginSuccessFailAndThrottle(t *testing.T) {
	env := newEnv(t)
	c := env.client(t)

	var bad *http.Response
	logs := captureLogs(t, func() {
		bad = c.post("/auth/login", url.Values{"identifier": {"alice@blaze.test"}, "password": {"wrongpass!"}})
	})
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
	assert.Contains(t, body(t, bad), "Invalid credentials.")
	assert.True(t, hasAction(logs, "auth.login.fail"), "failed login should be logged")

	logs = captureLogs(t, func() { c.login("alice") })
	assert.True(t, hasAction(logs, "auth.login.success"))

	// two attempts used; the limiter allows LoginMax per window
	for i := 2; i < server.LoginMax; i++ {
		resp := c.post("/auth/login", url.Values{"identifier": {"alice"}, "password": {"nope-nope"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	logs = captureLogs(t, func() {
		resp := c.post("/auth/login", url.Values{"identifier": {"alice"}, "password": {"Passw0rd!"}})
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})
	assert.True(t, hasAction(logs, "rate.login.hit"))
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	env := newEnv(t)
	c := env.client(t)
	c.get("/auth")

	logs := captureLogs(t, func() {
		req := url.Values{"identifier": {"alice"}, "password": {"Passw0rd!"}}
		resp := c.do(formRequest("/auth/login", req))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
	assert.True(t, hasAction(logs, "csrf.fail"))
	assert.Empty(t, c.cookies["sid"])
}

func TestSignupValidatesThenCreatesAccount(t *testing.T) {
	env := newEnv(t)
	c := env.client(t)
	form := url.Values{
		"first_name": {"Carol"},
		"last_name":  {"Jones"},
		"username":   {"carol"},
		"email":      {"carol@blaze.test"},
		"password":   {"short"},
		"confirm":    {"short"},
	}

	resp := c.post("/auth/signup", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Password must be 8 to 72 characters.")
	assert.Equal(t, 2, count(t, env.db, `SELECT COUNT(*) FROM users`))

	form.Set("password", "Passw0rd!")
	form.Set("confirm", "Passw0rd!")
	resp = c.post("/auth/signup", form)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 3, count(t, env.db, `SELECT COUNT(*) FROM users`))

	resp = c.get("/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "My Sales")

	form.Set("email", "carol2@blaze.test")
	resp = c.post("/auth/signup", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "username already taken")
}

func TestLogoutEndsSession(t *testing.T) {
	env := newEnv(t)
	c := env.client(t)
	c.login("bob")

	resp := c.post("/auth/logout", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Empty(t, c.cookies["sid"])

	resp = c.get("/dashboard")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("Location"))
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	env := newEnv(t)
	c := env.client(t)
	for _, p := range []string{"/dashboard", "/sell", "/profile", "/cart", "/products/p-keyboard/edit", "/payment/success"} {
		resp := c.get(p)
		assert.Equal(t, http.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/auth", resp.Header.Get("Location"), p)
	}
}

func TestLoginIssuesFreshSessionID(t *testing.T) {
	env := newEnv(t)
	victim := env.client(t)
	victim.cookies["sid"] = "planted-sid"
	victim.login("alice")
	assert.NotEqual(t, "planted-sid", victim.cookies["sid"])

	intruder := env.client(t)
	intruder.cookies["sid"] = "planted-sid"
	resp := intruder.get("/dashboard")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("Location"))
	assert.Zero(t, count(t, env.db, `SELECT COUNT(*) FROM sessions WHERE id = ? AND user_id IS NOT NULL`, "planted-sid"))

	// switching accounts retires the previous session id as well
	before := victim.cookies["sid"]
	victim.login("bob")
	assert.NotEqual(t, before, victim.cookies["sid"])
	assert.Zero(t, count(t, env.db, `SELECT COUNT(*) FROM sessions WHERE id = ? AND user_id IS NOT NULL`, before))
	resp = victim.get("/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupIssuesFreshSessionID(t *testing.T) {
	env := newEnv(t)
	c := env.client(t)
	c.cookies["sid"] = "planted-sid"
	resp := c.post("/auth/signup", url.Values{
		"first_name": {"Dana"},
		"last_name":  {"Reed"},
		"username":   {"dana"},
		"email":      {"dana@blaze.test"},
		"password":   {"Passw0rd!"},
		"confirm":    {"Passw0rd!"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.NotEqual(t, "planted-sid", c.cookies["sid"])

	intruder := env.client(t)
	intruder.cookies["sid"] = "planted-sid"
	resp = intruder.get("/profile")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("Location"))
}
