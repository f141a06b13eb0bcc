package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	custommiddleware "github.com/ecopay/ecopay-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса экопей.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Encoding"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/waste", h.SubmitWaste)
			r.Get("/waste", h.GetMyRequests)
			r.Get("/waste/{id}", h.GetRequest)

			r.Get("/balance", h.GetBalance)
			r.Get("/profile", h.GetProfile)
			r.Get("/transactions", h.GetTransactions)

			r.Get("/rewards", h.GetRewards)
			r.Post("/rewards/redeem", h.Redeem)
			r.Get("/redemptions", h.GetMyRedemptions)
			r.Get("/redemptions/{id}", h.GetRedemption)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(h.authMiddleware.RequireAdmin)

		r.Get("/requests", h.GetAllRequests)
		r.Post("/requests/{id}/approve", h.ApproveRequest)
		r.Post("/requests/{id}/complete", h.CompleteRequest)

		r.Get("/redemptions", h.GetAllRedemptions)
		r.Post("/redemptions/{id}/advance", h.AdvanceRedemption)

		r.Get("/users", h.GetAllUsers)

		r.Post("/rewards", h.CreateReward)
		r.Put("/rewards/{id}", h.UpdateReward)
		r.Delete("/rewards/{id}", h.DeleteReward)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
