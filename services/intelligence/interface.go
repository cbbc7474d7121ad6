package ai

import (
	"context"

	"smartcalendar/models"
)

// LanguageModel completes a prompt given the session's prior turns. Any error
// is treated as the model being unavailable.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string, priorTurns []models.ChatMessage) (string, error)
}

// ReminderScheduler is notified of every booking that is created, moved or
// cancelled.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, event models.Event) error
	CancelReminder(ctx context.Context, eventID string) error
}

// RescheduleReminder replaces the reminder of a booking whose start changed.
func RescheduleReminder(ctx context.Context, reminders ReminderScheduler, event models.Event) error {
	if err := reminders.CancelReminder(ctx, event.ID); err != nil {
		return err
	}
	return reminders.ScheduleReminder(ctx, event)
}

// CommandInterpreter is the caller-facing surface used by the HTTP handlers.
type CommandInterpreter interface {
	Turn(ctx context.Context, utterance, sessionID string) TurnResult
	Reset(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string) ([]models.ChatLog, error)
}

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	Reply                string
	Action               models.ActionKind // the action that was interpreted
	Payload              interface{}       // created/updated event, matches or candidates
	RequiresConfirmation bool
}
