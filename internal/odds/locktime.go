package odds

import (
	"fmt"
	"strings"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// lockTimeLayout is the textual input contract for lock deadlines:
// MM/DD/YYYY HH:MM in 24-hour time.
const lockTimeLayout = "01/02/2006 15:04"

// ParseLockTime parses a lock deadline string in MM/DD/YYYY HH:MM form.
func ParseLockTime(s string) (time.Time, error) {
	t, err := time.Parse(lockTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &domain.InvalidTimestampError{Input: s, Err: err}
	}
	return t, nil
}

// FormatLockTime renders a deadline as "March 3rd, 2025 at 2:30 PM".
func FormatLockTime(t time.Time) string {
	day := t.Day()
	return fmt.Sprintf("%s %d%s, %d at %s",
		t.Month().String(), day, daySuffix(day), t.Year(), t.Format("3:04 PM"))
}

// daySuffix returns the English ordinal suffix for a day of month. The teens
// always take "th".
func daySuffix(day int) string {
	if day%100 >= 10 && day%100 <= 20 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
