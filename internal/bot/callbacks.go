package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleUnsubscribe asks for confirmation before removing the subscription.
func (b *Bot) handleUnsubscribe(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Remove your subscription? You will stop receiving notifications.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, unsubscribe", "unsubscribe"),
			tgbotapi.NewInlineKeyboardButtonData("Keep it", "noop"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send unsubscribe confirmation", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action := strings.SplitN(cb.Data, ":", 2)[0]

	b.log.Info("callback",
		"action", action,
		"chat_id", chatID,
		"user_id", cb.From.ID,
	)

	switch action {
	case "unsubscribe":
		b.sessions.Cancel(chatID)
		removed, err := b.store.DeleteSubscription(ctx, chatID)
		if err != nil {
			b.log.Error("delete subscription", "chat_id", chatID, "error", err)
			b.reply(chatID, "Failed to unsubscribe, please try again.")
			return
		}
		if !removed {
			b.reply(chatID, "You have no active subscription.")
			return
		}
		b.reply(chatID, "You are unsubscribed.")
	case "noop":
		// Confirmation dismissed.
	}
}
