// Package match implements the listing matching engine.
package match

import "realty_bot/internal/model"

// Select returns the unprocessed listings satisfying the subscription's
// bounds. Both comparisons are inclusive. The input order is preserved, so
// earlier-stored listings come first; the dispatcher relies on that when it
// stops at the daily budget. Select has no side effects.
func Select(listings []model.Listing, sub model.Subscription) []model.Listing {
	var matched []model.Listing
	for _, l := range listings {
		if l.Processed {
			continue
		}
		if l.PriceValue <= sub.MaxPrice && l.DistanceValue <= sub.MaxDistance {
			matched = append(matched, l)
		}
	}
	return matched
}
