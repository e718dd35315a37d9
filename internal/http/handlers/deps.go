package handlers

import (
	"github.com/jmoiron/sqlx"

	"blaze/internal/cache"
	"blaze/internal/config"
	"blaze/internal/events"
	"blaze/internal/payments"
	"blaze/internal/repos"
	"blaze/internal/services"
	"blaze/internal/storage"
)

// Infra holds the pluggable backends; nil Cache and Events fall back to
// no-op and log implementations.
type Infra struct {
	Media    *storage.Media
	Cache    cache.Listings
	Events   events.Publisher
	Payments payments.Provider
}

type Deps struct {
	Auth     *services.AuthService
	Profiles *services.ProfileService

	AuthHandler      *AuthHandler
	ListingHandler   *ListingHandler
	ProductHandler   *ProductHandler
	CartHandler      *CartHandler
	CheckoutHandler  *CheckoutHandler
	WebhookHandler   *WebhookHandler
	DashboardHandler *DashboardHandler
	ProfileHandler   *ProfileHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, in Infra) *Deps {
	if in.Cache == nil {
		in.Cache = cache.Nop{}
	}
	if in.Events == nil {
		in.Events = events.LogPublisher{}
	}
	cookies := Cookies{Secure: cfg.CookieSecure}

	userRepo := repos.NewUserRepo(db)
	profileRepo := repos.NewProfileRepo(db)
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	authSvc := &services.AuthService{Users: userRepo, Profiles: profileRepo, Media: in.Media}
	profileSvc := &services.ProfileService{Profiles: profileRepo, Media: in.Media}
	catalogSvc := services.NewCatalogService(prodRepo, orderRepo, in.Cache)
	productSvc := services.NewProductService(prodRepo, orderRepo, in.Media, in.Cache)
	cartSvc := services.NewCartService(prodRepo)
	checkoutSvc := &services.CheckoutService{Products: prodRepo, Payments: in.Payments, BaseURL: cfg.BaseURL}
	fulfillSvc := services.NewFulfillmentService(prodRepo, orderRepo, in.Events, in.Cache)
	orderSvc := services.NewOrderService(orderRepo)

	return &Deps{
		Auth:     authSvc,
		Profiles: profileSvc,

		AuthHandler:      &AuthHandler{Auth: authSvc, Cookies: cookies},
		ListingHandler:   &ListingHandler{Catalog: catalogSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc, Products: productSvc, Cookies: cookies},
		CartHandler:      &CartHandler{Cart: cartSvc, Cookies: cookies},
		CheckoutHandler:  &CheckoutHandler{Checkout: checkoutSvc, Orders: orderSvc, Cookies: cookies},
		WebhookHandler:   &WebhookHandler{Payments: in.Payments, Fulfill: fulfillSvc},
		DashboardHandler: &DashboardHandler{Orders: orderSvc},
		ProfileHandler:   &ProfileHandler{Profiles: profileSvc},
	}
}
