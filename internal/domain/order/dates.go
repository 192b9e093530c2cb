package order

import (
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
)

const DateLayout = "2006-01-02"

// ParseDateRange turns inclusive YYYY-MM-DD bounds into UTC instants covering
// whole days. Blank bounds stay zero.
func ParseDateRange(start, end string) (from, to time.Time, err error) {
	if start = strings.TrimSpace(start); start != "" {
		from, err = time.ParseInLocation(DateLayout, start, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("invalid start date %q", start)
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		day, perr := time.ParseInLocation(DateLayout, end, time.UTC)
		if perr != nil {
			return time.Time{}, time.Time{}, apperr.Validation("invalid end date %q", end)
		}
		to = day.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, apperr.Validation("end date is before start date")
	}
	return from, to, nil
}
