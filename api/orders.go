package api

import (
	"net/http"
	"time"

	"terracafe/events"
	"terracafe/models"
	"terracafe/services"

	"github.com/rs/zerolog/log"
)

var knownStatuses = map[string]bool{
	services.OrderStatusPending:   true,
	services.OrderStatusPreparing: true,
	services.OrderStatusReady:     true,
	services.OrderStatusDelivered: true,
	services.OrderStatusCancelled: true,
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method, err := services.ParsePaymentMethod(req.MetodoPagamento)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	in := services.PlaceOrderInput{CustomerID: currentUser(r).ID, Method: method}
	for _, line := range req.Itens {
		in.Items = append(in.Items, line.input())
	}

	o, err := s.checkout.PlaceOrder(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info().
		Int64("order", o.ID).
		Int64("customer", in.CustomerID).
		Str("method", string(method)).
		Str("total", o.Total.StringFixed(2)).
		Msg("order placed")
	s.publish(r, events.OrderCreated(o))
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

// listOrders returns every order to staff (optionally by ?status=) and the
// caller's own orders to clients.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	filter := services.OrderFilter{Status: r.URL.Query().Get("status")}
	if filter.Status != "" && !knownStatuses[filter.Status] {
		writeError(w, http.StatusBadRequest, "invalid_status", "status desconhecido")
		return
	}
	if !u.IsStaff() {
		filter.CustomerID = u.ID
	}
	orders, err := services.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderList(orders))
}

func (s *Server) customerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if !selfOrStaff(r, id) {
		writeError(w, http.StatusForbidden, "forbidden", "acesso negado")
		return
	}
	orders, err := services.ListOrdersByCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderList(orders))
}

// loadOrder fetches the order named in the path and checks the caller may see it.
func (s *Server) loadOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return nil, false
	}
	o, err := services.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	u := currentUser(r)
	if !u.IsStaff() && (o.CustomerID == nil || *o.CustomerID != u.ID) {
		// same answer as a missing order
		writeError(w, http.StatusNotFound, "not_found", "pedido não encontrado")
		return nil, false
	}
	return o, true
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

// changeStatus runs a status-changing operation and announces the result.
func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request, op func(id int64) (*models.Order, error)) {
	before, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	after, err := op(before.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if after.Status != before.Status {
		s.announceStatus(r, before, after)
	}
	writeJSON(w, http.StatusOK, newOrderResponse(after))
}

func (s *Server) announceStatus(r *http.Request, before, after *models.Order) {
	log.Info().Int64("order", after.ID).Str("from", before.Status).Str("to", after.Status).Msg("order status changed")
	s.publish(r, events.StatusChanged(after, before.Status))
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.changeStatus(w, r, func(id int64) (*models.Order, error) {
		return services.UpdateOrderStatus(r.Context(), id, req.Status)
	})
}

func (s *Server) advanceOrder(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, func(id int64) (*models.Order, error) {
		return services.AdvanceOrder(r.Context(), id)
	})
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, func(id int64) (*models.Order, error) {
		return services.CancelOrder(r.Context(), id)
	})
}

// prepareItem marks one line as done. The card is refreshed even when the
// order stays in preparing, so the item's button goes away.
func (s *Server) prepareItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := idParam(r, "itemID")
	if !ok {
		badID(w)
		return
	}
	before, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	after, statusChanged, err := services.MarkItemPrepared(r.Context(), before.ID, itemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if statusChanged {
		s.announceStatus(r, before, after)
	} else {
		s.publish(r, events.ItemPrepared(after, itemID))
	}
	writeJSON(w, http.StatusOK, newOrderResponse(after))
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badID(w)
		return
	}
	if err := services.DeleteOrder(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "pedido removido"})
}

func (s *Server) kitchenSummary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("data")
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "data deve ser AAAA-MM-DD")
		return
	}
	sum, err := services.KitchenSummary(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
