package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

// RouteRegistrar is implemented by every handler in this service.
type RouteRegistrar interface {
	RegisterRoutes(router chi.Router)
}

// NewRouter assembles the HTTP surface. Authentication is resolved once per
// request by the auth middleware; authorization stays with each handler.
func NewRouter(issuer *auth.TokenIssuer, handlers ...RouteRegistrar) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(issuer))
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
	})

	return r
}
