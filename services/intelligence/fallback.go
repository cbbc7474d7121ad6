package ai

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"smartcalendar/models"
)

// HelpMessage is the reply when no rule recognises the utterance.
const HelpMessage = "Olá! Como posso ajudar você hoje? Posso agendar um horário, consultar a agenda ou cancelar um agendamento."

var (
	clientNameRe = regexp.MustCompile(`para\s+([a-zA-ZÀ-ÿ]+)`)
	hourRe       = regexp.MustCompile(`(\d{1,2})\s*(?:h|hora|horas)`)

	scheduleKeywords = []string{"agendar", "marcar", "agende"}
	queryKeywords    = []string{"ver", "mostrar", "listar", "consultar"}
)

// FallbackParser maps an utterance to an Action with keyword rules. It is used
// whenever the language model is unavailable or its output cannot be decoded.
type FallbackParser struct {
	loc *time.Location
	now func() time.Time
}

func NewFallbackParser(loc *time.Location, now func() time.Time) *FallbackParser {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &FallbackParser{loc: loc, now: now}
}

func (p *FallbackParser) Parse(utterance string) models.Action {
	lower := strings.ToLower(utterance)

	switch {
	case containsAny(lower, scheduleKeywords):
		return p.parseSchedule(lower)
	case containsAny(lower, queryKeywords):
		return models.QueryAction{}
	default:
		return models.ReplyAction{Text: HelpMessage}
	}
}

func (p *FallbackParser) parseSchedule(lower string) models.ScheduleAction {
	client := "Cliente"
	if m := clientNameRe.FindStringSubmatch(lower); m != nil {
		client = capitalize(m[1])
	}

	next := p.now().In(p.loc).Add(time.Hour)
	when := time.Date(next.Year(), next.Month(), next.Day(), next.Hour(), 0, 0, 0, p.loc)

	if strings.Contains(lower, "amanhã") || strings.Contains(lower, "amanha") {
		when = when.AddDate(0, 0, 1)
	}
	if strings.Contains(lower, "sábado") || strings.Contains(lower, "sabado") {
		when = when.AddDate(0, 0, daysUntil(when, time.Saturday))
	}
	if strings.Contains(lower, "domingo") {
		when = when.AddDate(0, 0, daysUntil(when, time.Sunday))
	}
	if m := hourRe.FindStringSubmatch(lower); m != nil {
		if hour, err := strconv.Atoi(m[1]); err == nil && hour >= 0 && hour <= 23 {
			when = time.Date(when.Year(), when.Month(), when.Day(), hour, when.Minute(), 0, 0, p.loc)
		}
	}

	service := models.DefaultService
	switch {
	case strings.Contains(lower, "barba"):
		service = "barba"
	case strings.Contains(lower, "manicure"):
		service = "manicure"
	}

	return models.ScheduleAction{
		ClientName: client,
		When:       when,
		Duration:   models.DefaultDuration,
		Service:    service,
	}
}

func daysUntil(t time.Time, target time.Weekday) int {
	return (int(target) - int(t.Weekday()) + 7) % 7
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
