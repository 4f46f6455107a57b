package http

import (
	"net/http"

	"github.com/frontandrew/swapstation/internal/delivery/http/middleware"
	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/config"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router содержит все зависимости для HTTP роутера
type Router struct {
	bookingHandler *BookingHandler
	swapHandler    *SwapHandler
	batteryHandler *BatteryHandler
	creditHandler  *CreditHandler
	vehicleHandler *VehicleHandler
	tokens         middleware.TokenValidator
	cors           config.CORSConfig
	logger         logger.Logger
}

// NewRouter создает новый HTTP router
func NewRouter(
	bookingHandler *BookingHandler,
	swapHandler *SwapHandler,
	batteryHandler *BatteryHandler,
	creditHandler *CreditHandler,
	vehicleHandler *VehicleHandler,
	tokens middleware.TokenValidator,
	cors config.CORSConfig,
	logger logger.Logger,
) *Router {
	return &Router{
		bookingHandler: bookingHandler,
		swapHandler:    swapHandler,
		batteryHandler: batteryHandler,
		creditHandler:  creditHandler,
		vehicleHandler: vehicleHandler,
		tokens:         tokens,
		cors:           cors,
		logger:         logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(middleware.CORSConfig{
		AllowedOrigins: rt.cors.AllowedOrigins,
		AllowedMethods: rt.cors.AllowedMethods,
		AllowedHeaders: rt.cors.AllowedHeaders,
	}))

	// Health check endpoint (публичный)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	staffOnly := middleware.RequireRole(domain.RoleStaff, domain.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Терминал станции гасит код без аутентификации
		r.Post("/swap/redeem", rt.swapHandler.Redeem)

		// Protected routes (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.tokens))

			r.Route("/bookings", func(r chi.Router) {
				r.With(middleware.RequireRole(domain.RoleDriver)).Post("/", rt.bookingHandler.CreateBooking)
				r.Get("/me", rt.bookingHandler.GetMyBookings)
				r.Get("/{id}", rt.bookingHandler.GetBookingByID)
				r.Patch("/{id}/cancel", rt.bookingHandler.CancelBooking)
				r.With(staffOnly).Post("/{id}/confirm", rt.bookingHandler.ConfirmBooking)
			})

			r.Route("/swap/transactions", func(r chi.Router) {
				r.Get("/me", rt.swapHandler.GetMyTransactions)
				r.Get("/{id}", rt.swapHandler.GetTransactionByID)
			})

			r.Get("/credits/me", rt.creditHandler.GetMyCredit)

			r.Route("/vehicles", func(r chi.Router) {
				r.Get("/me", rt.vehicleHandler.GetMyVehicles)
				r.With(middleware.RequireRole(domain.RoleDriver)).Post("/registrations", rt.vehicleHandler.RegisterVehicle)
				r.With(staffOnly).Post("/registrations/{id}/approve", rt.vehicleHandler.ApproveRegistration)
				r.With(staffOnly).Post("/registrations/{id}/reject", rt.vehicleHandler.RejectRegistration)
			})

			// Admin/Staff only endpoints
			r.Group(func(r chi.Router) {
				r.Use(staffOnly)
				r.Get("/stations/{id}/bookings", rt.bookingHandler.GetStationBookings)
				r.Get("/stations/{id}/batteries", rt.batteryHandler.GetStationBatteries)
				r.Post("/batteries/{id}/restore", rt.batteryHandler.RestoreBattery)
			})
		})
	})

	return r
}
