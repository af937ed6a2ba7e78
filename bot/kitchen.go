// Package bot runs the Telegram kitchen bot: order cards in the kitchen chat,
// kept in sync with every status change, with inline buttons to move orders along.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"terracafe/config"
	"terracafe/events"
	"terracafe/models"
	"terracafe/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// telegramAPI is the part of *tgbotapi.BotAPI the kitchen bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// orderStore is the order data the bot reads and changes.
type orderStore interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, f services.OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	MarkItemPrepared(ctx context.Context, orderID, itemID int64) (*models.Order, bool, error)
	KitchenSummary(ctx context.Context, date string) (*models.KitchenSummary, error)
	GetPointer(ctx context.Context, orderID int64) (chatID int64, messageID int, ok bool, err error)
	UpsertPointer(ctx context.Context, orderID, chatID int64, messageID int) error
}

type dbStore struct{}

func (dbStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return services.GetOrder(ctx, id)
}

func (dbStore) ListOrders(ctx context.Context, f services.OrderFilter) ([]models.Order, error) {
	return services.ListOrders(ctx, f)
}

func (dbStore) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	return services.UpdateOrderStatus(ctx, id, status)
}

func (dbStore) MarkItemPrepared(ctx context.Context, orderID, itemID int64) (*models.Order, bool, error) {
	return services.MarkItemPrepared(ctx, orderID, itemID)
}

func (dbStore) KitchenSummary(ctx context.Context, date string) (*models.KitchenSummary, error) {
	return services.KitchenSummary(ctx, date)
}

func (dbStore) GetPointer(ctx context.Context, orderID int64) (int64, int, bool, error) {
	return services.GetOrderMessagePointer(ctx, orderID)
}

func (dbStore) UpsertPointer(ctx context.Context, orderID, chatID int64, messageID int) error {
	return services.UpsertOrderMessagePointer(ctx, orderID, chatID, messageID)
}

// Kitchen posts and edits order cards in one chat. It implements events.Sink.
type Kitchen struct {
	api    telegramAPI
	store  orderStore
	chatID int64
	notify events.Sink // status changes made from the chat
	now    func() time.Time

	orderLocks sync.Map // map[orderID]*sync.Mutex
}

func NewKitchen(cfg config.TelegramConfig, notify events.Sink) (*Kitchen, error) {
	if cfg.KitchenChatID == 0 {
		return nil, errors.New("KITCHEN_CHAT_ID not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.KitchenToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newKitchen(api, dbStore{}, cfg.KitchenChatID, notify), nil
}

func newKitchen(api telegramAPI, store orderStore, chatID int64, notify events.Sink) *Kitchen {
	if notify == nil {
		notify = events.Nop{}
	}
	return &Kitchen{api: api, store: store, chatID: chatID, notify: notify, now: time.Now}
}

// cardMarkup converts OrderCardContent.Buttons to a Telegram inline keyboard.
func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (k *Kitchen) lockOrder(orderID int64) func() {
	v, _ := k.orderLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Publish refreshes the card of the order named by e.
func (k *Kitchen) Publish(ctx context.Context, e events.Event) error {
	return k.RefreshOrderCard(ctx, e.OrderID)
}

// RefreshOrderCard edits the order's card if it was posted before, otherwise
// posts a new one. A card deleted from the chat is posted again.
func (k *Kitchen) RefreshOrderCard(ctx context.Context, orderID int64) error {
	unlock := k.lockOrder(orderID)
	defer unlock()

	o, err := k.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	content := services.BuildKitchenCard(o, k.now())

	chatID, messageID, ok, err := k.store.GetPointer(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get card pointer: %w", err)
	}
	if ok {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			edit.ReplyMarkup = kb
		} else {
			edit.ReplyMarkup = &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		}
		_, err := k.api.Send(edit)
		switch {
		case err == nil:
			return nil
		case strings.Contains(err.Error(), "not modified"):
			return nil
		case !strings.Contains(err.Error(), "not found"):
			return fmt.Errorf("edit card for order %d: %w", orderID, err)
		}
	}

	msg := tgbotapi.NewMessage(k.chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := k.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send card for order %d: %w", orderID, err)
	}
	return k.store.UpsertPointer(ctx, orderID, k.chatID, sent.MessageID)
}

func (k *Kitchen) answer(callbackID, text string) {
	if _, err := k.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Warn().Err(err).Msg("answer callback")
	}
}

func (k *Kitchen) send(text string) {
	if _, err := k.api.Send(tgbotapi.NewMessage(k.chatID, text)); err != nil {
		log.Error().Err(err).Int64("chat", k.chatID).Msg("telegram send")
	}
}

func (k *Kitchen) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil || cq.Message.Chat.ID != k.chatID {
		k.answer(cq.ID, "Não autorizado.")
		return
	}
	cb, err := services.ParseOrderCallback(cq.Data)
	if err != nil {
		k.answer(cq.ID, "Ação inválida.")
		return
	}

	before, err := k.store.GetOrder(ctx, cb.OrderID)
	if err != nil {
		k.answer(cq.ID, "Pedido não encontrado.")
		return
	}

	var after *models.Order
	changed := true
	switch cb.Kind {
	case services.CallbackOrderStatus:
		after, err = k.store.UpdateOrderStatus(ctx, cb.OrderID, cb.Status)
	case services.CallbackItemPrepared:
		after, changed, err = k.store.MarkItemPrepared(ctx, cb.OrderID, cb.ItemID)
	}
	if err != nil {
		log.Warn().Err(err).Int64("order", cb.OrderID).Str("data", cq.Data).Msg("kitchen action rejected")
		k.answer(cq.ID, actionErrorText(err))
		if errors.Is(err, services.ErrInvalidTransition) {
			// card is stale; show the current state
			_ = k.RefreshOrderCard(ctx, cb.OrderID)
		}
		return
	}
	k.answer(cq.ID, "✅ "+services.StatusLabel(after.Status))

	if err := k.RefreshOrderCard(ctx, cb.OrderID); err != nil {
		log.Error().Err(err).Int64("order", cb.OrderID).Msg("refresh card")
	}
	e := events.StatusChanged(after, before.Status)
	if !changed {
		e = events.ItemPrepared(after, cb.ItemID)
	}
	if err := k.notify.Publish(ctx, e); err != nil {
		log.Error().Err(err).Int64("order", cb.OrderID).Str("type", e.Type).Msg("publish kitchen action")
	}
}

// actionErrorText is the answer shown on a rejected button. Unknown errors
// get a generic text.
func actionErrorText(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		return "Ação não permitida no status atual."
	case errors.Is(err, services.ErrNotFound):
		return "Pedido ou item não encontrado."
	case errors.Is(err, services.ErrInvalidInput):
		return "Ação inválida."
	}
	return "Erro ao atualizar o pedido. Tente novamente."
}

// handleOpenOrders answers /pedidos with every order still in the kitchen.
func (k *Kitchen) handleOpenOrders(ctx context.Context) {
	var lines []string
	for _, status := range []string{services.OrderStatusPending, services.OrderStatusPreparing, services.OrderStatusReady} {
		orders, err := k.store.ListOrders(ctx, services.OrderFilter{Status: status})
		if err != nil {
			log.Error().Err(err).Msg("list open orders")
			k.send("Erro ao carregar pedidos.")
			return
		}
		for i := len(orders) - 1; i >= 0; i-- {
			o := orders[i]
			lines = append(lines, fmt.Sprintf("#%d %s · %s · %d min",
				o.ID, services.StatusLabel(o.Status), models.FormatBRL(o.Total), services.EstimatedPrepMinutes(o.Items)))
		}
	}
	if len(lines) == 0 {
		k.send("Nenhum pedido em aberto.")
		return
	}
	k.send("Pedidos em aberto:\n\n" + strings.Join(lines, "\n"))
}

// handleSummary answers /resumo with today's counters.
func (k *Kitchen) handleSummary(ctx context.Context) {
	s, err := k.store.KitchenSummary(ctx, k.now().Format(time.DateOnly))
	if err != nil {
		log.Error().Err(err).Msg("kitchen summary")
		k.send("Erro ao carregar resumo.")
		return
	}
	k.send(formatSummary(s))
}

func formatSummary(s *models.KitchenSummary) string {
	return fmt.Sprintf("Resumo %s\n\n%s: %d\n%s: %d\n%s: %d\n%s: %d\n%s: %d\n\nFaturamento: %s",
		s.Date,
		services.StatusLabel(services.OrderStatusPending), s.Pending,
		services.StatusLabel(services.OrderStatusPreparing), s.Preparing,
		services.StatusLabel(services.OrderStatusReady), s.Ready,
		services.StatusLabel(services.OrderStatusDelivered), s.Delivered,
		services.StatusLabel(services.OrderStatusCancelled), s.Cancelled,
		models.FormatBRL(s.Revenue),
	)
}

func (k *Kitchen) setBotCommands() error {
	_, err := k.api.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "pedidos", Description: "Pedidos em aberto"},
		tgbotapi.BotCommand{Command: "resumo", Description: "Resumo do dia"},
	))
	return err
}

func (k *Kitchen) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		k.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != k.chatID {
		return
	}
	switch msg.Command() {
	case "pedidos":
		k.handleOpenOrders(ctx)
	case "resumo":
		k.handleSummary(ctx)
	}
}

// Start polls Telegram until ctx is cancelled.
func (k *Kitchen) Start(ctx context.Context) {
	if err := k.setBotCommands(); err != nil {
		log.Warn().Err(err).Msg("set bot commands")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := k.api.GetUpdatesChan(u)
	log.Info().Int64("chat", k.chatID).Msg("kitchen bot started")

	for {
		select {
		case <-ctx.Done():
			k.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			k.handleUpdate(ctx, update)
		}
	}
}
