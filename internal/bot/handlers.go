package bot

import (
	"context"
	"fmt"
	"time"

	"realty_bot/internal/dispatch"
	"realty_bot/internal/match"
	"realty_bot/internal/model"
	"realty_bot/internal/parse"
	"realty_bot/internal/session"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, fmt.Sprintf(`Welcome to Realty Notify Bot!

Get notified about new rental listings matching your price and distance limits.

Commands:
/subscribe — set up a subscription
/unsubscribe — remove your subscription
/subscription — show your current subscription
/test — send a test notification
/cancel — abort subscription setup

Limit: at most %d notifications per day.`, b.tracker.MaxDaily()))
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Subscription:
/subscribe — set up a subscription (two questions: max price, max distance)
/unsubscribe — remove your subscription
/subscription — show your subscription and today's notification count
/cancel — abort an in-progress setup

Other:
/test — send a test notification (consumes a daily slot)`)
}

func (b *Bot) handleSubscribe(chatID int64) {
	b.sessions.Begin(chatID)
	b.reply(chatID, "Enter the maximum monthly rent (in rubles):\nFor example: 50000")
}

func (b *Bot) handleCancel(chatID int64) {
	if b.sessions.Cancel(chatID) {
		b.reply(chatID, "Subscription setup cancelled.")
		return
	}
	b.reply(chatID, "Nothing to cancel.")
}

func (b *Bot) handleSessionInput(ctx context.Context, chatID int64, text string) {
	res := b.sessions.Input(chatID, text)

	switch res.Outcome {
	case session.OutcomeNone:
		// No active dialogue; ignore stray text.
	case session.OutcomeInvalid:
		if res.State == session.StateAwaitingPrice {
			b.reply(chatID, "Please enter a valid number for the price.")
		} else {
			b.reply(chatID, "Please enter a valid number for the distance.")
		}
	case session.OutcomeNeedDistance:
		b.reply(chatID, "Now enter the maximum distance to transit (in minutes on foot):\nFor example: 15")
	case session.OutcomeCommitted:
		b.commitSubscription(ctx, chatID, res.MaxPrice, res.MaxDistance)
	}
}

// commitSubscription persists the finished dialogue's subscription and
// immediately dispatches matches from the already-stored listings, stopping
// once the daily budget denies.
func (b *Bot) commitSubscription(ctx context.Context, chatID int64, maxPrice, maxDistance int64) {
	sub := &model.Subscription{
		ChatID:      chatID,
		MaxPrice:    maxPrice,
		MaxDistance: maxDistance,
	}
	if err := b.store.UpsertSubscription(ctx, sub); err != nil {
		b.log.Error("upsert subscription", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to save your subscription, please try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf(
		"You are subscribed!\n\nCriteria:\nMax price: %d ₽\nMax distance to transit: %d min\n\nLimit: at most %d notifications per day.",
		maxPrice, maxDistance, b.tracker.MaxDaily()))

	unprocessed, err := b.store.ListUnprocessed(ctx)
	if err != nil {
		b.log.Error("list unprocessed", "chat_id", chatID, "error", err)
		return
	}

	matched := match.Select(unprocessed, *sub)
	if len(matched) == 0 {
		return
	}

	b.reply(chatID, fmt.Sprintf("Found %d existing matching listing(s).", len(matched)))
	b.dispatcher.DeliverMatches(ctx, chatID, matched)
}

func (b *Bot) handleSubscription(ctx context.Context, chatID int64) {
	sub, err := b.store.GetSubscription(ctx, chatID)
	if err != nil {
		b.log.Error("get subscription", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to load your subscription, please try again.")
		return
	}
	if sub == nil {
		b.reply(chatID, "You have no subscription. Use /subscribe to create one.")
		return
	}

	sentToday, err := b.tracker.SentToday(ctx, chatID)
	if err != nil {
		b.log.Error("sent today", "chat_id", chatID, "error", err)
	}
	b.reply(chatID, FormatSubscription(sub, sentToday, b.tracker.MaxDaily()))
}

func (b *Bot) handleTest(ctx context.Context, chatID int64) {
	listing := model.Listing{
		Source:        model.SourceTest,
		Title:         "Test listing",
		PriceText:     "30000 ₽",
		PriceValue:    parse.Price("30000 ₽"),
		Address:       "5 min from transit",
		DistanceValue: 5,
		URL:           "https://example.com",
		FetchedAt:     time.Now().UTC(),
	}

	status, err := b.dispatcher.Deliver(ctx, chatID, listing)
	if err != nil {
		b.log.Error("test deliver", "chat_id", chatID, "error", err)
	}
	if err == nil && status == dispatch.StatusSent {
		b.reply(chatID, "Test notification sent.")
		return
	}
	b.reply(chatID, "Could not send a test notification (the daily limit may be reached).")
}
