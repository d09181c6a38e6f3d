// Package datetime provides standardized date handling for schedule dates.
// Due dates are stored in UTC; display formatting is US-style long form.
package datetime

import "time"

// Standard formats used throughout the application.
const (
	// DateFormat is the standard date-only format (YYYY-MM-DD).
	DateFormat = "2006-01-02"

	// DateTimeFormat is the standard datetime format (ISO 8601 / RFC3339).
	DateTimeFormat = time.RFC3339

	// DisplayDateFormat is the human-readable date used in reminder emails.
	DisplayDateFormat = "January 2, 2006"
)

// DaysBefore returns the instant exactly n calendar days before t.
// It is the lead-time computation for scheduled send times: a schedule entry
// due on day D with a 7-day interval yields D minus 7 days.
func DaysBefore(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, -n)
}

// FormatDisplay renders t for human-readable email copy.
func FormatDisplay(t time.Time) string {
	return t.Format(DisplayDateFormat)
}

// ParseDate parses a date string in YYYY-MM-DD format as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
