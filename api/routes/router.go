package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isokofarm/isoko-backend/api/controllers"
	"github.com/isokofarm/isoko-backend/api/middleware"
	"github.com/isokofarm/isoko-backend/internal/cart"
	checkoutsvc "github.com/isokofarm/isoko-backend/internal/checkout"
	"github.com/isokofarm/isoko-backend/internal/ledger"
	"github.com/isokofarm/isoko-backend/internal/notifications"
	"github.com/isokofarm/isoko-backend/internal/orders"
	"github.com/isokofarm/isoko-backend/internal/payments"
	"github.com/isokofarm/isoko-backend/pkg/config"
	"github.com/isokofarm/isoko-backend/pkg/db"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	CartSvc       cart.Service
	CheckoutSvc   checkoutsvc.Service
	OrdersSvc     orders.Service
	PaymentsSvc   payments.Service
	Notifications notifications.Service
	LedgerSvc     ledger.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readiness := controllers.Readiness()
	readiness = controllers.WithDependency(readiness, "database", deps.DB)
	readiness = controllers.WithDependency(readiness, "redis", deps.Redis)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(deps.CartSvc, logg))
			r.Post("/", controllers.CartAdd(deps.CartSvc, logg))
			r.Put("/{cartId}", controllers.CartUpdate(deps.CartSvc, logg))
			r.Delete("/{cartId}", controllers.CartRemove(deps.CartSvc, logg))
			r.Delete("/", controllers.CartClear(deps.CartSvc, logg))
		})

		r.With(middleware.RequireRole(logg, "buyer")).
			Post("/v1/checkout", controllers.Checkout(deps.CheckoutSvc, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.OrdersSvc, logg))
			r.Get("/{orderId}", controllers.OrdersDetail(deps.OrdersSvc, logg))
			r.Post("/{orderId}/approve", controllers.OrderTransition(deps.OrdersSvc, enums.OrderActionApprove, logg))
			r.Post("/{orderId}/reject", controllers.OrderTransition(deps.OrdersSvc, enums.OrderActionReject, logg))
			r.Post("/{orderId}/ship", controllers.OrderTransition(deps.OrdersSvc, enums.OrderActionShip, logg))
			r.Post("/{orderId}/deliver", controllers.OrderTransition(deps.OrdersSvc, enums.OrderActionDeliver, logg))
			r.Post("/{orderId}/cancel", controllers.OrderTransition(deps.OrdersSvc, enums.OrderActionCancel, logg))
			r.Post("/{orderId}/payment-intent", controllers.PaymentIntentCreate(deps.PaymentsSvc, logg))
			r.Post("/{orderId}/payment-confirm", controllers.PaymentConfirm(deps.PaymentsSvc, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationsCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.With(middleware.RequireRole(logg, "farmer", "admin")).
			Get("/v1/farmer/ledger/summary", controllers.FarmerLedgerSummary(deps.LedgerSvc, logg))
	})

	return r
}
