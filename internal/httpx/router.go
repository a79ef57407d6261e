package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/transactions", func(r chi.Router) {
		r.Post("/", handler.SubmitBatch)
		r.Get("/list", handler.ListCustomers)
		r.Get("/customer/{id}", handler.GetCustomer)
		r.Get("/audit/{id}", handler.GetAuditTrail)
	})
	return r
}
