package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram reaches the administrator through a Telegram bot. Outbound
// messages go to the configured admin chat; inbound button presses arrive
// either through the webhook endpoint or through long polling and are
// handed to the registered admin-action handler.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	logger  zerolog.Logger
	handler func(context.Context, AdminEvent)
}

func NewTelegram(token string, adminChatID int64, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")

	return &Telegram{
		bot:    bot,
		chatID: adminChatID,
		logger: logger,
	}, nil
}

// OnAdminAction registers the handler invoked for every parsed button
// press. Must be set before updates start flowing.
func (t *Telegram) OnAdminAction(handler func(context.Context, AdminEvent)) {
	t.handler = handler
}

func (t *Telegram) Notify(_ context.Context, text string, actions ...Action) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if len(actions) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(actions))
		for _, action := range actions {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(action.Label, action.Token))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send admin notification: %w", err)
	}
	return nil
}

func (t *Telegram) Acknowledge(_ context.Context, interactionID, text string) error {
	callback := tgbotapi.NewCallback(interactionID, text)
	if _, err := t.bot.Request(callback); err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

// HandleUpdate processes one Telegram update, from either transport.
// Malformed callback data is logged and dropped; it never reaches the
// state machine.
func (t *Telegram) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		t.handleMessage(update.Message)
	}
}

func (t *Telegram) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	action, bookingID, err := ParseActionToken(query.Data)
	if err != nil {
		t.logger.Warn().
			Str("data", query.Data).
			Err(err).
			Msg("Ignoring malformed callback data")
		return
	}

	if query.Message != nil && query.Message.Chat != nil && query.Message.Chat.ID != t.chatID {
		t.logger.Warn().
			Int64("chat_id", query.Message.Chat.ID).
			Str("action", action).
			Msg("Ignoring callback from non-admin chat")
		return
	}

	t.logger.Info().
		Str("action", action).
		Str("booking_id", bookingID).
		Msg("Admin button pressed")

	if t.handler == nil {
		t.logger.Error().Msg("No admin action handler registered")
		return
	}
	t.handler(ctx, AdminEvent{
		Action:        action,
		BookingID:     bookingID,
		InteractionID: query.ID,
	})
}

func (t *Telegram) handleMessage(message *tgbotapi.Message) {
	if message.Text != "/start" {
		return
	}

	// Operator bootstrap: echo the chat id so it can be configured as
	// ADMIN_CHAT_ID.
	reply := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf(
		"This bot relays payment approvals.\n\nYour chat ID: <code>%d</code>\nSet it as ADMIN_CHAT_ID in the server environment.",
		message.Chat.ID,
	))
	reply.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(reply); err != nil {
		t.logger.Error().Err(err).Msg("Failed to reply to /start")
	}
}

// RunPolling consumes updates via long polling until ctx is cancelled.
// Used when no public base URL is configured for webhooks.
func (t *Telegram) RunPolling(ctx context.Context) error {
	// Drop any stale webhook so polling can take over.
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to delete existing webhook")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := t.bot.GetUpdatesChan(cfg)
	t.logger.Info().Msg("Telegram long polling started")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info().Msg("Telegram long polling stopped")
			return ctx.Err()
		case update := <-updates:
			t.HandleUpdate(ctx, update)
		}
	}
}

// RegisterWebhook points the bot at baseURL/webhook so updates arrive on
// the HTTP server instead of polling.
func (t *Telegram) RegisterWebhook(baseURL string) error {
	webhook, err := tgbotapi.NewWebhook(baseURL + "/webhook")
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	webhook.AllowedUpdates = []string{"message", "callback_query"}
	webhook.DropPendingUpdates = true

	if _, err := t.bot.Request(webhook); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}

	t.logger.Info().Str("url", baseURL+"/webhook").Msg("Telegram webhook registered")
	return nil
}
