package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// ErrUnrecognizedDate means no known format matched the expression.
	ErrUnrecognizedDate = errors.New("unrecognized date expression")
	// ErrInvalidCalendarDate means the day/month/year triple does not exist (e.g. 31/02).
	ErrInvalidCalendarDate = errors.New("invalid calendar date")
)

// ResolutionError wraps a failure to resolve a date expression.
type ResolutionError struct {
	Expr string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve date %q: %v", e.Expr, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var (
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	regionalDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	shortDateRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	bareDayRe      = regexp.MustCompile(`^(\d{1,2})$`)
	clockTimeRe    = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
)

// DateExpression is a resolved date: an instant plus the calendar day enclosing it.
type DateExpression struct {
	Input   string
	Instant time.Time
	Start   time.Time // 00:00:00.000 of the day
	End     time.Time // 23:59:59.999 of the same day
	HasTime bool      // Instant carries a time of day taken from the input
}

// DateResolver turns absolute, relative and partial date expressions into days
// in a fixed time zone.
type DateResolver struct {
	loc *time.Location
}

func NewDateResolver(loc *time.Location) *DateResolver {
	if loc == nil {
		loc = time.Local
	}
	return &DateResolver{loc: loc}
}

// Location returns the resolver's time zone.
func (r *DateResolver) Location() *time.Location { return r.loc }

// Resolve parses expr relative to reference. Formats are tried in a fixed
// priority order and the first match wins.
func (r *DateResolver) Resolve(expr string, reference time.Time) (DateExpression, error) {
	trimmed := strings.TrimSpace(expr)
	lower := strings.ToLower(trimmed)
	ref := reference.In(r.loc)

	if m := isoDateRe.FindStringSubmatch(trimmed); m != nil {
		return r.calendarDay(expr, atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := regionalDateRe.FindStringSubmatch(trimmed); m != nil {
		return r.calendarDay(expr, atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := shortDateRe.FindStringSubmatch(trimmed); m != nil {
		return r.calendarDay(expr, ref.Year(), atoi(m[2]), atoi(m[1]))
	}
	if m := bareDayRe.FindStringSubmatch(trimmed); m != nil {
		return r.calendarDay(expr, ref.Year(), int(ref.Month()), atoi(m[1]))
	}

	switch lower {
	case "hoje":
		return r.relativeDay(expr, ref, 0), nil
	case "depois de amanhã", "depois de amanha":
		return r.relativeDay(expr, ref, 2), nil
	case "amanhã", "amanha":
		return r.relativeDay(expr, ref, 1), nil
	}
	// "próxima semana", "próxima segunda"... all map to one week ahead.
	if strings.Contains(lower, "próxim") || strings.Contains(lower, "proxim") {
		return r.relativeDay(expr, ref, 7), nil
	}

	t, err := dateparse.ParseIn(trimmed, r.loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return DateExpression{}, &ResolutionError{Expr: expr, Err: ErrUnrecognizedDate}
	}
	t = t.In(r.loc)
	out := r.dayOf(expr, t)
	out.Instant = t
	out.HasTime = t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
	return out, nil
}

func (r *DateResolver) calendarDay(expr string, year, month, day int) (DateExpression, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return DateExpression{}, &ResolutionError{Expr: expr, Err: ErrInvalidCalendarDate}
	}
	return r.dayOf(expr, t), nil
}

func (r *DateResolver) relativeDay(expr string, ref time.Time, days int) DateExpression {
	return r.dayOf(expr, ref.AddDate(0, 0, days))
}

func (r *DateResolver) dayOf(expr string, t time.Time) DateExpression {
	y, m, d := t.In(r.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, r.loc)
	return DateExpression{
		Input:   expr,
		Instant: start,
		Start:   start,
		End:     time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), r.loc),
	}
}

// ClockTime is a time of day.
type ClockTime struct {
	Hour, Minute, Second int
}

// On returns day's date at c in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, loc)
}

// ResolveClockTime extracts the first HH:MM[:SS] in expr.
func ResolveClockTime(expr string) (ClockTime, bool) {
	m := clockTimeRe.FindStringSubmatch(expr)
	if m == nil {
		return ClockTime{}, false
	}
	c := ClockTime{Hour: atoi(m[1]), Minute: atoi(m[2])}
	if m[3] != "" {
		c.Second = atoi(m[3])
	}
	if c.Hour > 23 || c.Minute > 59 || c.Second > 59 {
		return ClockTime{}, false
	}
	return c, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
