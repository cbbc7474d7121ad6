package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartcalendar/models"

	"go.uber.org/zap"
)

const displayLayout = "02/01/2006 15:04"

// outcome is what one dispatch produced: the user-facing result and, when the
// action must wait for a "sim", the action to keep pending. modelText is the
// raw model answer the action was extracted from, if any.
type outcome struct {
	result    TurnResult
	pending   models.Action
	failed    bool
	modelText string
}

func replyOutcome(kind models.ActionKind, text string) outcome {
	return outcome{result: TurnResult{Reply: text, Action: kind}}
}

func failedOutcome(kind models.ActionKind, text string) outcome {
	o := replyOutcome(kind, text)
	o.failed = true
	return o
}

// dispatch executes an action against the event store. confirmed is true when
// the action comes from an affirmed pending slot.
func (i *Interpreter) dispatch(ctx context.Context, logger *zap.Logger, action models.Action, confirmed bool) outcome {
	actionsTotal.WithLabelValues(string(action.Kind())).Inc()

	switch a := action.(type) {
	case models.ScheduleAction:
		return i.schedule(ctx, logger, a)
	case models.QueryAction:
		return i.query(ctx, logger, a)
	case models.CancelAction:
		return i.cancel(ctx, logger, a, confirmed)
	case models.UpdateAction:
		return i.update(ctx, logger, a, confirmed)
	case models.ReplyAction:
		if strings.TrimSpace(a.Text) == "" {
			return replyOutcome(models.ActionReply, "Desculpe, não entendi o que você deseja fazer.")
		}
		return replyOutcome(models.ActionReply, a.Text)
	default:
		logger.Warn("Unknown action type", zap.String("type", fmt.Sprintf("%T", action)))
		return replyOutcome(models.ActionReply, "Desculpe, não entendi o que você deseja fazer.")
	}
}

func (i *Interpreter) schedule(ctx context.Context, logger *zap.Logger, a models.ScheduleAction) outcome {
	if strings.TrimSpace(a.ClientName) == "" || a.When.IsZero() {
		return replyOutcome(models.ActionSchedule, "Nome do cliente e data/hora são obrigatórios para criar um agendamento.")
	}

	event := models.Event{
		ClientName: a.ClientName,
		Service:    a.Service,
		DateTime:   a.When,
		Duration:   a.Duration,
		Notes:      a.Notes,
	}
	if event.Service == "" {
		event.Service = models.DefaultService
	}
	if event.Duration <= 0 {
		event.Duration = models.DefaultDuration
	}

	created, err := i.events.Create(ctx, event)
	if err != nil {
		logger.Error("Failed to create event", zap.Error(err))
		return failedOutcome(models.ActionSchedule, fmt.Sprintf("Não foi possível criar o agendamento. Erro: %v", err))
	}

	if i.reminders != nil {
		if err := i.reminders.ScheduleReminder(ctx, *created); err != nil {
			logger.Warn("Failed to schedule reminder", zap.String("event", created.ID), zap.Error(err))
		}
	}

	out := replyOutcome(models.ActionSchedule, fmt.Sprintf("Agendamento para %s criado com sucesso para %s.",
		created.ClientName, i.display(created.DateTime)))
	out.result.Payload = created
	return out
}

func (i *Interpreter) query(ctx context.Context, logger *zap.Logger, a models.QueryAction) outcome {
	events, err := i.events.ListMatching(ctx, i.filter(logger, a.ClientName, a.Date, a.Service))
	if err != nil {
		logger.Error("Failed to query events", zap.Error(err))
		return failedOutcome(models.ActionQuery, fmt.Sprintf("Não foi possível consultar os agendamentos. Erro: %v", err))
	}
	if len(events) == 0 {
		return replyOutcome(models.ActionQuery, "Não encontrei nenhum agendamento com esses critérios.")
	}

	out := replyOutcome(models.ActionQuery, "Encontrei os seguintes agendamentos:\n"+i.enumerate(events))
	out.result.Payload = events
	return out
}

func (i *Interpreter) cancel(ctx context.Context, logger *zap.Logger, a models.CancelAction, confirmed bool) outcome {
	event, out, ok := i.single(ctx, logger, models.ActionCancel, "cancelar", i.filter(logger, a.ClientName, a.Date, ""))
	if !ok {
		return out
	}

	if i.confirmDestructive && !confirmed {
		out := replyOutcome(models.ActionCancel, fmt.Sprintf("Confirma o cancelamento do agendamento de %s em %s? (sim/não)",
			event.ClientName, i.display(event.DateTime)))
		out.result.RequiresConfirmation = true
		out.result.Payload = event
		out.pending = a
		return out
	}

	deleted, err := i.events.Delete(ctx, event.ID)
	if err == nil && !deleted {
		err = errors.New("agendamento não encontrado")
	}
	if err != nil {
		logger.Error("Failed to delete event", zap.String("event", event.ID), zap.Error(err))
		return failedOutcome(models.ActionCancel, fmt.Sprintf("Não foi possível cancelar o agendamento. Erro: %v", err))
	}
	if i.reminders != nil {
		if err := i.reminders.CancelReminder(ctx, event.ID); err != nil {
			logger.Warn("Failed to cancel reminder", zap.String("event", event.ID), zap.Error(err))
		}
	}

	out = replyOutcome(models.ActionCancel, fmt.Sprintf("Agendamento de %s para %s foi cancelado com sucesso.",
		event.ClientName, i.display(event.DateTime)))
	out.result.Payload = event
	return out
}

func (i *Interpreter) update(ctx context.Context, logger *zap.Logger, a models.UpdateAction, confirmed bool) outcome {
	event, out, ok := i.single(ctx, logger, models.ActionUpdate, "atualizar", i.filter(logger, a.ClientName, a.OldDate, ""))
	if !ok {
		return out
	}

	changes := i.changes(logger, a, event)
	if changes.IsEmpty() {
		return replyOutcome(models.ActionUpdate, fmt.Sprintf("Nenhuma alteração informada para o agendamento de %s.", event.ClientName))
	}

	if i.confirmDestructive && !confirmed {
		out := replyOutcome(models.ActionUpdate, fmt.Sprintf("Confirma a alteração do agendamento de %s em %s? (sim/não)",
			event.ClientName, i.display(event.DateTime)))
		out.result.RequiresConfirmation = true
		out.result.Payload = event
		out.pending = a
		return out
	}

	updated, err := i.events.Update(ctx, event.ID, changes)
	if err != nil {
		logger.Error("Failed to update event", zap.String("event", event.ID), zap.Error(err))
		return failedOutcome(models.ActionUpdate, fmt.Sprintf("Não foi possível atualizar o agendamento. Erro: %v", err))
	}
	if i.reminders != nil && !updated.DateTime.Equal(event.DateTime) {
		if err := RescheduleReminder(ctx, i.reminders, *updated); err != nil {
			logger.Warn("Failed to reschedule reminder", zap.String("event", event.ID), zap.Error(err))
		}
	}

	out = replyOutcome(models.ActionUpdate, fmt.Sprintf("Agendamento de %s foi atualizado com sucesso.", event.ClientName))
	out.result.Payload = updated
	return out
}

// single resolves filter to exactly one candidate. With zero or several
// matches it returns the reply to send instead and ok=false.
func (i *Interpreter) single(ctx context.Context, logger *zap.Logger, kind models.ActionKind, verb string, filter models.EventFilter) (*models.Event, outcome, bool) {
	candidates, err := i.events.ListMatching(ctx, filter)
	if err != nil {
		logger.Error("Failed to look up candidates", zap.String("action", string(kind)), zap.Error(err))
		return nil, failedOutcome(kind, fmt.Sprintf("Não foi possível %s o agendamento. Erro: %v", verb, err)), false
	}

	switch len(candidates) {
	case 0:
		return nil, replyOutcome(kind, fmt.Sprintf("Não encontrei nenhum agendamento com esses critérios para %s.", verb)), false
	case 1:
		return &candidates[0], outcome{}, true
	}

	out := replyOutcome(kind, fmt.Sprintf("Encontrei mais de um agendamento. Qual deles você deseja %s?\n%s", verb, i.enumerate(candidates)))
	out.result.Payload = candidates
	return nil, out, false
}

// filter builds a store filter. An unresolvable date is logged and left out.
func (i *Interpreter) filter(logger *zap.Logger, client, date, service string) models.EventFilter {
	f := models.EventFilter{ClientName: strings.TrimSpace(client), Service: strings.TrimSpace(service)}
	if strings.TrimSpace(date) == "" {
		return f
	}
	day, err := i.resolver.Resolve(date, i.now())
	if err != nil {
		logger.Warn("Ignoring unresolvable date filter", zap.String("date", date), zap.Error(err))
		return f
	}
	f.From, f.To = &day.Start, &day.End
	return f
}

func (i *Interpreter) changes(logger *zap.Logger, a models.UpdateAction, current *models.Event) models.EventChanges {
	var c models.EventChanges
	if strings.TrimSpace(a.NewDate) != "" {
		if d, err := i.resolver.Resolve(a.NewDate, i.now()); err != nil {
			logger.Warn("Ignoring unresolvable new date", zap.String("date", a.NewDate), zap.Error(err))
		} else {
			when := d.Instant
			if clock, ok := ResolveClockTime(a.NewDate); ok {
				when = clock.On(d.Start, i.loc)
			} else if !d.HasTime {
				// keep the booking's current time of day
				cur := current.DateTime.In(i.loc)
				when = ClockTime{Hour: cur.Hour(), Minute: cur.Minute(), Second: cur.Second()}.On(d.Start, i.loc)
			}
			c.DateTime = &when
		}
	}
	if s := strings.TrimSpace(a.Service); s != "" {
		c.Service = &s
	}
	if a.Duration > 0 {
		d := a.Duration
		c.Duration = &d
	}
	if a.Notes != "" {
		n := a.Notes
		c.Notes = &n
	}
	return c
}

// enumerate lists events 1-based in store order.
func (i *Interpreter) enumerate(events []models.Event) string {
	lines := make([]string, 0, len(events))
	for n, e := range events {
		lines = append(lines, fmt.Sprintf("%d. %s: %s em %s", n+1, e.ClientName, serviceLabel(e.Service), i.display(e.DateTime)))
	}
	return strings.Join(lines, "\n")
}

func (i *Interpreter) display(t time.Time) string {
	return t.In(i.loc).Format(displayLayout)
}

func serviceLabel(s string) string {
	if s == "" {
		return "sem serviço"
	}
	return s
}
