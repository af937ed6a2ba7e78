package api

import (
	"terracafe/models"
	"terracafe/services"

	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
	Senha    string `json:"senha"`
}

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type updateClientRequest struct {
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
}

type createClientResponse struct {
	User *models.User `json:"user"`
	// Set only when the password was generated; shown once.
	TempPassword string `json:"senha_temporaria,omitempty"`
}

type drinkRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Available   *bool           `json:"available"`
}

func (d drinkRequest) input() services.DrinkInput {
	available := true
	if d.Available != nil {
		available = *d.Available
	}
	return services.DrinkInput{
		Name:        d.Name,
		Price:       d.Price,
		Glyph:       d.Image,
		Description: d.Description,
		Category:    d.Category,
		Available:   available,
	}
}

type customizationRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type cartLineRequest struct {
	ProdutoID    int64    `json:"produto_id"`
	Ingredientes []string `json:"ingredientes"`
	Quantidade   int      `json:"quantidade"`
}

func (c cartLineRequest) input() services.CartLineInput {
	return services.CartLineInput{
		DrinkID:        c.ProdutoID,
		Customizations: c.Ingredientes,
		Quantity:       c.Quantidade,
	}
}

type quantityRequest struct {
	Quantidade int `json:"quantidade"`
}

type cartResponse struct {
	Items      []models.CartItem `json:"items"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	TotalUnits int               `json:"total_itens"`
}

func newCartResponse(c *models.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return cartResponse{Items: items, Subtotal: c.Subtotal, TotalUnits: services.TotalUnits(items)}
}

type paymentOption struct {
	services.PaymentMethodInfo
	Total    decimal.Decimal `json:"total"`
	Discount decimal.Decimal `json:"discount_amount"`
}

type placeOrderRequest struct {
	MetodoPagamento string            `json:"metodo_pagamento"`
	Itens           []cartLineRequest `json:"itens"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	*models.Order
	EstimatedMinutes int `json:"estimated_minutes"`
}

func newOrderResponse(o *models.Order) orderResponse {
	return orderResponse{Order: o, EstimatedMinutes: services.EstimatedPrepMinutes(o.Items)}
}

func newOrderList(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}
