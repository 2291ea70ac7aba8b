package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"realty_bot/internal/budget"
	"realty_bot/internal/config"
	"realty_bot/internal/dispatch"
	"realty_bot/internal/session"
	"realty_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles user commands, drives the subscription
// setup dialogue, and acts as the notification transport.
type Bot struct {
	api        telegramAPI
	store      storage.Storage
	cfg        *config.Config
	tracker    *budget.Tracker
	sessions   *session.Registry
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, budget tracker,
// and config. The bot owns the notification dispatcher, with itself as the
// transport.
func New(token string, store storage.Storage, tracker *budget.Tracker, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		tracker:  tracker,
		sessions: session.NewRegistry(),
		log:      log,
	}
	b.dispatcher = dispatch.New(store, tracker, b, FormatListing, cfg.NotificationDelay, log)
	return b, nil
}

// Dispatcher returns the notification dispatcher owned by the bot, for the
// scan loop to share.
func (b *Bot) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			if update.Message.IsCommand() {
				b.handleCommand(ctx, update.Message)
				continue
			}
			// Free text only matters while a setup dialogue is active.
			b.handleSessionInput(ctx, update.Message.Chat.ID, update.Message.Text)
		}
	}
}

// Notify sends a notification message, reporting transport failure to the
// dispatcher.
func (b *Bot) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.Notify(chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "subscribe":
		b.handleSubscribe(chatID)
	case "cancel":
		b.handleCancel(chatID)
	case "unsubscribe":
		b.handleUnsubscribe(chatID)
	case "subscription":
		b.handleSubscription(ctx, chatID)
	case "test":
		b.handleTest(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
