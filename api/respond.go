package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"terracafe/services"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// errorStatus maps a service error to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrNoSession):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrThrottled):
		return http.StatusTooManyRequests, "throttled"
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, services.ErrInsufficientPoints):
		return http.StatusConflict, "insufficient_points"
	case errors.Is(err, services.ErrPaymentDeclined):
		return http.StatusPaymentRequired, "payment_declined"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart"
	case errors.Is(err, services.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, services.ErrUnknownDrink):
		return http.StatusBadRequest, "unknown_drink"
	case errors.Is(err, services.ErrUnknownCustomization):
		return http.StatusBadRequest, "unknown_customization"
	case errors.Is(err, services.ErrUnknownPaymentMethod):
		return http.StatusBadRequest, "unknown_payment_method"
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError answers with the mapped status. Internal errors are
// logged and their text is not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, code, "erro interno")
		return
	}
	var throttled *services.ThrottledError
	if errors.As(err, &throttled) {
		w.Header().Set("Retry-After", strconv.Itoa(throttled.WaitSeconds))
	}
	writeError(w, status, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}
