package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scrapline/scrapline-backend/api/controllers"
	"github.com/scrapline/scrapline-backend/api/middleware"
	"github.com/scrapline/scrapline-backend/internal/fulfillment"
	"github.com/scrapline/scrapline-backend/internal/notify"
	"github.com/scrapline/scrapline-backend/internal/pickups"
	"github.com/scrapline/scrapline-backend/pkg/config"
	"github.com/scrapline/scrapline-backend/pkg/db"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Registry *prometheus.Registry

	Pickups       pickups.Service
	Fulfillment   fulfillment.Service
	Notifications notify.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/pickups", func(r chi.Router) {
			r.Post("/", controllers.PickupCreate(d.Pickups, logg))
			r.Get("/mine", controllers.PickupMine(d.Pickups, logg))
			r.Post("/{pickupId}/cancel", controllers.PickupCancel(d.Pickups, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireShop(logg))
				r.Get("/available", controllers.PickupFeed(d.Pickups, logg))
				r.Post("/{pickupId}/accept", controllers.PickupAccept(d.Pickups, logg))
				r.Post("/{pickupId}/start", controllers.PickupStart(d.Pickups, logg))
				r.Post("/{pickupId}/complete", controllers.PickupComplete(d.Pickups, logg))
			})
		})

		r.Route("/bulk", func(r chi.Router) {
			r.Post("/", controllers.BulkCreate(d.Fulfillment, logg))
			r.Get("/mine", controllers.BulkMine(d.Fulfillment, logg))
			r.Get("/{bulkId}", controllers.BulkDetail(d.Fulfillment, logg))
			r.Post("/{bulkId}/start", controllers.BulkStartPickup(d.Fulfillment, logg))
			r.Patch("/{bulkId}/buyer-status", controllers.BulkBuyerStatus(d.Fulfillment, logg))
			r.Get("/{bulkId}/orders", controllers.BulkOrders(d.Fulfillment, logg))
			r.Post("/{bulkId}/vendors/{shopId}/remove", controllers.BulkRemoveVendor(d.Fulfillment, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireShop(logg))
				r.Get("/available", controllers.BulkVendorFeed(d.Fulfillment, logg))
				r.Post("/{bulkId}/commitments", controllers.BulkCommit(d.Fulfillment, logg))
				r.Post("/{bulkId}/reject", controllers.BulkReject(d.Fulfillment, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireShop(logg))
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
		})
	})

	return r
}
