package bot

import (
	"fmt"
	"strings"

	"realty_bot/internal/model"
)

// FormatListing renders a listing as a notification message. The engine
// supplies plain text only; markup is left to the transport defaults.
func FormatListing(l model.Listing) string {
	var b strings.Builder
	b.WriteString("New listing!\n\n")
	b.WriteString(l.Title)
	if l.PriceText != "" {
		fmt.Fprintf(&b, "\nPrice: %s", l.PriceText)
	}
	if l.Address != "" {
		fmt.Fprintf(&b, "\nAddress: %s", l.Address)
	}
	if l.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(l.URL)
	}
	return b.String()
}

// FormatSubscription renders a chat's subscription criteria and today's
// notification usage.
func FormatSubscription(sub *model.Subscription, sentToday, maxDaily int) string {
	var b strings.Builder
	b.WriteString("Your subscription:\n\n")
	fmt.Fprintf(&b, "• Max price: %d ₽\n", sub.MaxPrice)
	fmt.Fprintf(&b, "• Max distance to transit: %d min\n\n", sub.MaxDistance)
	fmt.Fprintf(&b, "Notifications today: %d/%d\n", sentToday, maxDaily)
	fmt.Fprintf(&b, "Active since: %s", sub.CreatedAt.Format("2006-01-02 15:04 UTC"))
	return b.String()
}
