package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"terracafe/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		wantCode string
	}{
		{fmt.Errorf("order 3: %w", services.ErrNotFound), http.StatusNotFound, "not_found"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{&services.ThrottledError{WaitSeconds: 4}, http.StatusTooManyRequests, "throttled"},
		{services.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{fmt.Errorf("%w: ready -> pending", services.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{services.ErrInsufficientPoints, http.StatusConflict, "insufficient_points"},
		{fmt.Errorf("charge: %w", services.ErrPaymentDeclined), http.StatusPaymentRequired, "payment_declined"},
		{services.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
		{services.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
		{services.ErrUnknownDrink, http.StatusBadRequest, "unknown_drink"},
		{services.ErrUnknownCustomization, http.StatusBadRequest, "unknown_customization"},
		{services.ErrUnknownPaymentMethod, http.StatusBadRequest, "unknown_payment_method"},
		{services.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.wantCode, code, tt.err.Error())
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteServiceErrorThrottledSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cliente/login", nil)

	writeServiceError(rec, req, &services.ThrottledError{WaitSeconds: 8})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "8", rec.Header().Get("Retry-After"))
	assert.Contains(t, decodeError(t, rec).Message, "8s")
}

func TestWriteServiceErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pedido", nil)

	writeServiceError(rec, req, errors.New("password authentication failed for user postgres"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal", body.Error)
	assert.NotContains(t, body.Message, "postgres")
}
