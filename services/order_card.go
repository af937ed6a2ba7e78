package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"terracafe/models"

	"github.com/dustin/go-humanize"
)

// OrderCardButton is one inline button (text + callback_data).
type OrderCardButton struct {
	Text         string
	CallbackData string
}

// OrderCardContent is the text and optional inline keyboard for an order card.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

const (
	CallbackOrderStatus  = "order_status"
	CallbackItemPrepared = "item_prepared"
)

func StatusLabel(status string) string {
	switch status {
	case OrderStatusPending:
		return "🕐 Pendente"
	case OrderStatusPreparing:
		return "👨‍🍳 Preparando"
	case OrderStatusReady:
		return "✅ Pronto"
	case OrderStatusDelivered:
		return "📦 Entregue"
	case OrderStatusCancelled:
		return "❌ Cancelado"
	default:
		return status
	}
}

var methodLabels = map[models.PaymentMethod]string{
	models.PaymentPix:       "Pix",
	models.PaymentCash:      "Dinheiro",
	models.PaymentCredit:    "Crédito",
	models.PaymentDebitCard: "Débito",
	models.PaymentVoucher:   "Vale",
}

func statusCallback(orderID int64, status string) string {
	return CallbackOrderStatus + ":" + strconv.FormatInt(orderID, 10) + ":" + status
}

func itemCallback(orderID, itemID int64) string {
	return fmt.Sprintf("%s:%d:%d", CallbackItemPrepared, orderID, itemID)
}

// BuildKitchenCard returns the card text and the next-action buttons for the kitchen chat.
// now anchors the relative "placed ... ago" line.
func BuildKitchenCard(o *models.Order, now time.Time) OrderCardContent {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido #%d", o.ID)
	if o.CustomerName != "" {
		fmt.Fprintf(&b, " · %s", o.CustomerName)
	}
	b.WriteString("\n\n")
	for _, it := range o.Items {
		mark := "▫️"
		if it.Prepared {
			mark = "☑️"
		}
		fmt.Fprintf(&b, "%s %s %dx %s", mark, it.Glyph, it.Quantity, it.DrinkName)
		if len(it.Customizations) > 0 {
			names := make([]string, 0, len(it.Customizations))
			for _, c := range it.Customizations {
				names = append(names, c.Name)
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total: %s (%s)\n", models.FormatBRL(o.Total), methodLabels[o.PaymentMethod])
	fmt.Fprintf(&b, "Status: %s\n", StatusLabel(o.Status))
	if o.Status == OrderStatusPending || o.Status == OrderStatusPreparing {
		fmt.Fprintf(&b, "Tempo estimado: %d min\n", EstimatedPrepMinutes(o.Items))
	}
	fmt.Fprintf(&b, "Recebido %s", humanize.RelTime(o.CreatedAt, now, "atrás", "adiante"))

	var buttons [][]OrderCardButton
	switch o.Status {
	case OrderStatusPending:
		buttons = [][]OrderCardButton{
			{{Text: "👨‍🍳 Iniciar preparo", CallbackData: statusCallback(o.ID, OrderStatusPreparing)}},
			{{Text: "❌ Cancelar", CallbackData: statusCallback(o.ID, OrderStatusCancelled)}},
		}
	case OrderStatusPreparing:
		for _, it := range o.Items {
			if it.Prepared {
				continue
			}
			buttons = append(buttons, []OrderCardButton{{Text: "☑️ " + it.DrinkName, CallbackData: itemCallback(o.ID, it.ID)}})
		}
		buttons = append(buttons, []OrderCardButton{{Text: "✅ Marcar pronto", CallbackData: statusCallback(o.ID, OrderStatusReady)}})
	case OrderStatusReady:
		buttons = [][]OrderCardButton{
			{{Text: "📦 Entregue", CallbackData: statusCallback(o.ID, OrderStatusDelivered)}},
		}
	}
	return OrderCardContent{Text: b.String(), Buttons: buttons}
}

// OrderCallback is a decoded inline-button press.
type OrderCallback struct {
	Kind    string // CallbackOrderStatus or CallbackItemPrepared
	OrderID int64
	Status  string // CallbackOrderStatus only
	ItemID  int64  // CallbackItemPrepared only
}

// ParseOrderCallback decodes callback data produced by BuildKitchenCard.
func ParseOrderCallback(data string) (OrderCallback, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return OrderCallback{}, invalid("callback %q", data)
	}
	orderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return OrderCallback{}, invalid("callback order id %q", parts[1])
	}
	cb := OrderCallback{Kind: parts[0], OrderID: orderID}
	switch cb.Kind {
	case CallbackOrderStatus:
		cb.Status = parts[2]
	case CallbackItemPrepared:
		cb.ItemID, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return OrderCallback{}, invalid("callback item id %q", parts[2])
		}
	default:
		return OrderCallback{}, invalid("callback kind %q", cb.Kind)
	}
	return cb, nil
}
