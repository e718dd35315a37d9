// Package server assembles the fiber app: templates, middleware and routes.
package server

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"

	"blaze/internal/config"
	"blaze/internal/http/handlers"
	applog "blaze/internal/log"
	"blaze/web"
)

const (
	WebhookPath = "/api/webhooks/stripe"
	BodyLimit   = 5 << 20

	// LoginMax attempts per LoginWindow per client.
	LoginMax    = 5
	LoginWindow = 10 * time.Minute
)

func views() (*html.Engine, error) {
	sub, err := fs.Sub(web.FS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("money", func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	})
	return engine, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		switch code {
		case fiber.StatusNotFound:
			msg = "Page not found"
		case fiber.StatusRequestEntityTooLarge:
			msg = "That upload is too large."
		}
	}
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	} else {
		applog.Warn(c, "request.rejected", err, map[string]any{"code": code})
	}
	// Avoid leaking internals; best-effort render
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// New builds the app over deps. Static assets and templates come from the
// embedded web package; uploads are served from cfg.MediaDir.
func New(cfg config.Config, deps *handlers.Deps) (*fiber.App, error) {
	engine, err := views()
	if err != nil {
		return nil, err
	}
	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    BodyLimit,
		ErrorHandler: errorHandler,
	})

	mediaPrefix := strings.TrimRight(cfg.MediaURL, "/")
	if mediaPrefix == "" {
		mediaPrefix = "/media"
	}

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New(helmet.Config{CrossOriginEmbedderPolicy: "unsafe-none"}))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, mediaPrefix+"/") || p == WebhookPath
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many requests. Please slow down."})
		},
	}))
	app.Use(handlers.LoadUser(deps.Auth, deps.Profiles))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == WebhookPath
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:       http.FS(web.FS),
		PathPrefix: "static",
		MaxAge:     3600,
	}))
	app.Get(mediaPrefix+"/*", mediaHandler(cfg.MediaDir))

	// ---------- Routes ----------
	need := handlers.RequireUser()

	app.Get("/", deps.ListingHandler.Home)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	app.Get("/auth", deps.AuthHandler.Page)
	app.Post("/auth/login", limiter.New(limiter.Config{
		Max:        LoginMax,
		Expiration: LoginWindow,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many attempts. Please try again later."})
		},
	}), deps.AuthHandler.Login)
	app.Post("/auth/signup", deps.AuthHandler.Signup)
	app.Post("/auth/logout", deps.AuthHandler.Logout)

	app.Get("/products/:id", deps.ProductHandler.Detail)
	app.Get("/sell", need, deps.ProductHandler.NewForm)
	app.Post("/sell", need, deps.ProductHandler.Create)
	app.Get("/products/:id/edit", need, deps.ProductHandler.EditForm)
	app.Post("/products/:id/edit", need, deps.ProductHandler.Update)
	app.Post("/products/:id/delete", need, deps.ProductHandler.Delete)

	cart := app.Group("/cart", need)
	cart.Get("/", deps.CartHandler.View)
	cart.Post("/add", deps.CartHandler.Add)
	cart.Post("/remove", deps.CartHandler.Remove)
	cart.Post("/clear", deps.CartHandler.Clear)

	app.Post("/checkout/product/:id", need, deps.CheckoutHandler.Product)
	app.Post("/checkout/cart", need, deps.CheckoutHandler.Cart)
	app.Get("/payment/success", need, deps.CheckoutHandler.Success)
	app.Get("/payment/canceled", need, deps.CheckoutHandler.Canceled)

	app.Get("/dashboard", need, deps.DashboardHandler.Show)
	app.Get("/profile", need, deps.ProfileHandler.Show)
	app.Post("/profile", need, deps.ProfileHandler.Update)
	app.Post("/profile/theme", need, deps.ProfileHandler.Theme)

	app.Post(WebhookPath, deps.WebhookHandler.Stripe)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app, nil
}

// mediaHandler serves uploads from dir, refusing anything that could walk
// out of it.
func mediaHandler(dir string) fiber.Handler {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(dir, clean), true)
	}
}
