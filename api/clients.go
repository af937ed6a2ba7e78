package api

import (
	"net/http"

	"terracafe/services"

	"github.com/rs/zerolog/log"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := services.Register(r.Context(), services.RegisterInput{
		Name:     req.Nome,
		Email:    req.Email,
		Phone:    req.Telefone,
		Password: req.Senha,
		Role:     services.RoleForEmail(req.Email, s.staffEmails),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := s.sessions.Create(r.Context(), u.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info().Int64("user", u.ID).Str("role", u.Role).Msg("client registered")
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: u})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, u, err := services.Login(r.Context(), s.sessions, req.Email, req.Senha)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: u})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := services.Logout(r.Context(), s.sessions, currentToken(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "sessão encerrada"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	users, err := services.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// createClient is the counter flow: staff registers a client, optionally
// without a password, in which case a temporary one is generated.
func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, temp, err := services.CreateUserWithTempPassword(r.Context(), services.RegisterInput{
		Name:     req.Nome,
		Email:    req.Email,
		Phone:    req.Telefone,
		Password: req.Senha,
		Role:     services.RoleForEmail(req.Email, s.staffEmails),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createClientResponse{User: u, TempPassword: temp})
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if !selfOrStaff(r, id) {
		writeError(w, http.StatusForbidden, "forbidden", "acesso negado")
		return
	}
	u, err := services.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if !selfOrStaff(r, id) {
		writeError(w, http.StatusForbidden, "forbidden", "acesso negado")
		return
	}
	var req updateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := services.UpdateUser(r.Context(), id, req.Nome, req.Telefone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if err := services.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "cliente removido"})
}
