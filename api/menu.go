package api

import (
	"net/http"

	"terracafe/services"
)

func (s *Server) listDrinks(w http.ResponseWriter, r *http.Request) {
	// Staff see unavailable drinks too when they pass a valid token.
	all := false
	if token := bearerToken(r); token != "" {
		if u, err := s.userForToken(r.Context(), token); err == nil && u.IsStaff() {
			all = r.URL.Query().Get("todos") == "1"
		}
	}
	drinks, err := services.ListDrinks(r.Context(), all)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drinks)
}

func (s *Server) getDrink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	d, err := services.GetDrink(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) createDrink(w http.ResponseWriter, r *http.Request) {
	var req drinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := services.AddDrink(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) updateDrink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	var req drinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := services.UpdateDrink(r.Context(), id, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDrink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if err := services.DeleteDrink(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "produto removido"})
}

func (s *Server) listCustomizations(w http.ResponseWriter, r *http.Request) {
	list, err := services.ListCustomizations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCustomization(w http.ResponseWriter, r *http.Request) {
	var req customizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := services.AddCustomization(r.Context(), req.Name, req.Price)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCustomization(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	var req customizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := services.UpdateCustomization(r.Context(), id, req.Name, req.Price)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCustomization(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if err := services.DeleteCustomization(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "ingrediente removido"})
}
