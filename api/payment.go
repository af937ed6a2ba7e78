package api

import (
	"net/http"

	"terracafe/services"

	"github.com/shopspring/decimal"
)

// paymentMethods lists the checkout options, with the discounted total for
// ?total= when given.
func (s *Server) paymentMethods(w http.ResponseWriter, r *http.Request) {
	total := decimal.Zero
	if v := r.URL.Query().Get("total"); v != "" {
		t, err := decimal.NewFromString(v)
		if err != nil || t.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid_total", "total inválido")
			return
		}
		total = t
	}
	methods := services.PaymentMethods()
	out := make([]paymentOption, 0, len(methods))
	for _, m := range methods {
		charged, discount := services.ApplyDiscount(total, m.ID)
		out = append(out, paymentOption{PaymentMethodInfo: m, Total: charged, Discount: discount})
	}
	writeJSON(w, http.StatusOK, out)
}
