// Package api is the REST surface the café front-end talks to.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"terracafe/db"
	"terracafe/events"
	"terracafe/models"
	"terracafe/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const eventTimeout = 5 * time.Second

type Options struct {
	Sessions    services.SessionStore
	Checkout    *services.Checkout
	Events      events.Sink
	StaffEmails []string
	CORSOrigins []string
}

type Server struct {
	sessions    services.SessionStore
	checkout    *services.Checkout
	events      events.Sink
	staffEmails []string
	corsOrigins []string

	userForToken func(ctx context.Context, token string) (*models.User, error)
}

func NewServer(opts Options) *Server {
	s := &Server{
		sessions:    opts.Sessions,
		checkout:    opts.Checkout,
		events:      opts.Events,
		staffEmails: opts.StaffEmails,
		corsOrigins: opts.CORSOrigins,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	s.userForToken = func(ctx context.Context, token string) (*models.User, error) {
		return services.UserForToken(ctx, s.sessions, token)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
	}).Handler)

	r.Get("/healthz", s.health)

	r.Post("/cliente/register", s.register)
	r.Post("/cliente/login", s.login)

	r.Get("/produtos", s.listDrinks)
	r.Get("/produtos/{id}", s.getDrink)
	r.Get("/ingredientes", s.listCustomizations)
	r.Get("/pagamento/metodos", s.paymentMethods)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/cliente/logout", s.logout)
		r.Get("/cliente/me", s.me)
		r.Get("/cliente/{id}", s.getClient)
		r.Put("/cliente/{id}", s.updateClient)

		r.Route("/carrinho", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Delete("/", s.clearCart)
			r.Post("/itens", s.addCartItem)
			r.Put("/itens/{index}", s.editCartItem)
			r.Patch("/itens/{index}", s.setCartItemQuantity)
			r.Delete("/itens/{index}", s.removeCartItem)
		})

		r.Post("/pedido", s.placeOrder)
		r.Get("/pedido", s.listOrders)
		r.Get("/pedido/{id}", s.getOrder)
		r.Get("/pedido/cliente/{id}", s.customerOrders)

		r.Group(func(r chi.Router) {
			r.Use(requireStaff)

			r.Get("/cliente", s.listClients)
			r.Post("/cliente", s.createClient)
			r.Delete("/cliente/{id}", s.deleteClient)

			r.Post("/produtos", s.createDrink)
			r.Put("/produtos/{id}", s.updateDrink)
			r.Delete("/produtos/{id}", s.deleteDrink)
			r.Post("/ingredientes", s.createCustomization)
			r.Put("/ingredientes/{id}", s.updateCustomization)
			r.Delete("/ingredientes/{id}", s.deleteCustomization)

			r.Put("/pedido/{id}", s.updateOrderStatus)
			r.Delete("/pedido/{id}", s.deleteOrder)
			r.Post("/pedido/{id}/avancar", s.advanceOrder)
			r.Post("/pedido/{id}/cancelar", s.cancelOrder)
			r.Post("/pedido/{id}/itens/{itemID}/preparar", s.prepareItem)

			r.Get("/cozinha/resumo", s.kitchenSummary)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if db.Pool != nil {
		if err := db.Pool.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "db_unavailable", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// publish hands e to the event sink outside the request's cancellation.
func (s *Server) publish(r *http.Request, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), eventTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		log.Warn().Err(err).
			Str("type", e.Type).
			Int64("order", e.OrderID).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("event not delivered")
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func badID(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_id", "identificador inválido")
}
