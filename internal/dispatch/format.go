package dispatch

import "fmt"

// FormatLimitNotice renders the once-per-day message telling a chat its
// notification cap was reached.
func FormatLimitNotice(maxDaily int) string {
	return fmt.Sprintf(
		"You have reached today's limit of %d notifications. New matches will arrive tomorrow.",
		maxDaily)
}
