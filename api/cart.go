package api

import (
	"net/http"
	"strconv"

	"terracafe/models"
	"terracafe/services"

	"github.com/go-chi/chi/v5"
)

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		writeError(w, http.StatusBadRequest, "invalid_index", "índice inválido")
		return 0, false
	}
	return i, true
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := services.GetCart(r.Context(), currentUser(r).ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteCart(r.Context(), currentUser(r).ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(&models.Cart{CustomerID: currentUser(r).ID}))
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := services.AddToCart(r.Context(), currentUser(r).ID, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartResponse(cart))
}

// editCartItem replaces the line in place with a new drink, customizations and quantity.
func (s *Server) editCartItem(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req cartLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := services.EditCartItem(r.Context(), currentUser(r).ID, index, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (s *Server) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := services.SetCartItemQuantity(r.Context(), currentUser(r).ID, index, req.Quantidade)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	cart, err := services.RemoveCartItem(r.Context(), currentUser(r).ID, index)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}
