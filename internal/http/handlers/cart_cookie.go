package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"blaze/internal/cart"
	applog "blaze/internal/log"
)

// cookieCart keeps the encoded cart in the browser under cart.StorageKey.
type cookieCart struct {
	c       *fiber.Ctx
	cookies Cookies
}

func (b cookieCart) Load() (string, bool) {
	v := b.c.Cookies(cart.StorageKey)
	return v, v != ""
}

func (b cookieCart) Save(encoded string) error {
	b.cookies.set(b.c, cart.StorageKey, encoded, time.Now().Add(cartCookieTTL))
	return nil
}

func (k Cookies) loadCart(c *fiber.Ctx) *cart.Store {
	s, err := cart.Load(cookieCart{c: c, cookies: k})
	if err != nil {
		applog.Warn(c, "cart.corrupt", err, nil)
	}
	return s
}
