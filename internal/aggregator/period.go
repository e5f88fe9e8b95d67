package aggregator

import (
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
)

// localDay is the calendar day of t as seen in loc. A calendar day
// (midnight UTC, the form domain.DateOf produces) is already a day and is
// returned unchanged; any other instant is projected into loc first.
func localDay(t time.Time, loc *time.Location) time.Time {
	if isCalendarDay(t) {
		return t
	}
	if loc == nil {
		loc = time.UTC
	}
	return domain.CalendarDay(t.In(loc))
}

func isCalendarDay(t time.Time) bool {
	if t.Location() != time.UTC {
		return false
	}
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// mondayOffset counts days since Monday: Monday 0 .. Sunday 6.
func mondayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// WeekBounds returns the Monday and Sunday of the week containing ref in
// loc. Both are calendar days (midnight UTC). A calendar-day ref selects its
// own week; any other instant is projected into loc first, so the same
// instant may land in different weeks for users in different zones.
func WeekBounds(ref time.Time, loc *time.Location) (start, end time.Time) {
	day := localDay(ref, loc)
	start = day.AddDate(0, 0, -mondayOffset(day))
	end = start.AddDate(0, 0, 6)
	return start, end
}

// MonthBounds returns the first and last calendar day of the month
// containing ref in loc.
func MonthBounds(ref time.Time, loc *time.Location) (start, end time.Time) {
	day := localDay(ref, loc)
	start = domain.DateOf(day.Year(), day.Month(), 1)
	end = start.AddDate(0, 1, -1)
	return start, end
}
