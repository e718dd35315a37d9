package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"blaze/internal/config"
	"blaze/internal/http/handlers"
	"blaze/internal/http/server"
	"blaze/internal/payments"
	"blaze/internal/repos"
	"blaze/internal/storage"
)

const webhookSecret = "whsec_test_secret"

// testProvider verifies webhooks like the real Stripe provider but hands out
// fake hosted checkout URLs.
type testProvider struct {
	*payments.Stripe
	mu   sync.Mutex
	reqs []payments.SessionRequest
	err  error
}

func (p *testProvider) CreateCheckoutSession(_ context.Context, req payments.SessionRequest) (payments.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return payments.Session{}, p.err
	}
	p.reqs = append(p.reqs, req)
	n := len(p.reqs)
	return payments.Session{ID: fmt.Sprintf("cs_test_%d", n), URL: fmt.Sprintf("https://checkout.test/%d", n)}, nil
}

type testEnv struct {
	app      *fiber.App
	db       *sqlx.DB
	provider *testProvider
	mediaDir string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedDemo(context.Background(), db))

	cfg := config.Config{BaseURL: "http://localhost:8080", MediaDir: t.TempDir(), MediaURL: "/media"}
	media, err := storage.NewMedia(cfg.MediaDir, cfg.MediaURL)
	require.NoError(t, err)

	prov := &testProvider{Stripe: payments.NewStripe("sk_test", webhookSecret, "usd")}
	deps := handlers.NewDeps(db, cfg, handlers.Infra{Media: media, Payments: prov})
	app, err := server.New(cfg, deps)
	require.NoError(t, err)
	return &testEnv{app: app, db: db, provider: prov, mediaDir: cfg.MediaDir}
}

// client keeps cookies across requests the way a browser would.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, app: e.app, cookies: map[string]string{}}
}

func (c *client) do(req *http.Request) *http.Response {
	c.t.Helper()
	for k, v := range c.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (c *client) get(path string) *http.Response {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// post submits a form with the current CSRF token, fetching one first if
// needed.
func (c *client) post(path string, form url.Values) *http.Response {
	c.t.Helper()
	if c.cookies["csrf_"] == "" {
		c.get("/auth")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", c.cookies["csrf_"])
	return c.do(formRequest(path, form))
}

// postMultipart submits fields and one optional file part, like a browser
// form with enctype multipart/form-data.
func (c *client) postMultipart(path string, fields url.Values, fileField, fileName string, file []byte) *http.Response {
	c.t.Helper()
	if c.cookies["csrf_"] == "" {
		c.get("/auth")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(c.t, w.WriteField("csrf", c.cookies["csrf_"]))
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(c.t, w.WriteField(k, v))
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(c.t, err)
		_, err = fw.Write(file)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *client) login(identifier string) {
	c.t.Helper()
	resp := c.post("/auth/login", url.Values{"identifier": {identifier}, "password": {"Passw0rd!"}})
	require.Equal(c.t, http.StatusFound, resp.StatusCode)
	require.NotEmpty(c.t, c.cookies["sid"])
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

// captureLogs temporarily replaces the standard logger output.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func hasAction(entries []logEntry, action string) bool {
	for _, e := range entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

// signedEvent builds a checkout.session.completed event and its signature.
func signedEvent(t *testing.T, sessionID string, amount int64, md map[string]string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_" + sessionID,
		"object": "event",
		"type":   payments.EventCheckoutCompleted,
		"data": map[string]any{"object": map[string]any{
			"id":           sessionID,
			"object":       "checkout.session",
			"amount_total": amount,
			"metadata":     md,
		}},
	})
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	return payload, sp.Header
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, sig string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, server.WebhookPath, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sig)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func count(t *testing.T, db *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, db.Rebind(query), args...))
	return n
}

var pngImage = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}, make([]byte, 64)...)
