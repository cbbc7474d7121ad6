package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartcalendar/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendReminder = "reminder:send"
	ReminderQueue    = "default"
)

// ReminderTaskID is the asynq task id of the reminder for eventID.
func ReminderTaskID(eventID string) string {
	return "reminder:" + eventID
}

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.MaxRetry(3), asynq.Queue(ReminderQueue)}
	if payload.EventID != "" {
		opts = append(opts, asynq.TaskID(ReminderTaskID(payload.EventID)))
	}

	return task, opts, nil
}

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskDeleter is the part of *asynq.Inspector the scheduler needs.
type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

// ReminderScheduler enqueues a reminder some minutes before each booking and
// withdraws it when the booking is cancelled or moved.
type ReminderScheduler struct {
	client    Enqueuer
	inspector TaskDeleter
	lead      time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewReminderScheduler(client Enqueuer, inspector TaskDeleter, lead time.Duration, logger *zap.Logger) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{client: client, inspector: inspector, lead: lead, now: time.Now, logger: logger}
}

// ScheduleReminder enqueues the reminder for event. Bookings whose reminder
// time has already passed are skipped.
func (s *ReminderScheduler) ScheduleReminder(ctx context.Context, event models.Event) error {
	fireAt := event.DateTime.Add(-s.lead)
	if !fireAt.After(s.now()) {
		s.logger.Debug("Reminder time already passed, skipping", zap.String("event", event.ID))
		return nil
	}

	payload := models.ReminderPayload{
		EventID:    event.ID,
		ClientName: event.ClientName,
		Service:    event.Service,
		Title:      "Lembrete de agendamento",
		Body: fmt.Sprintf("%s tem %s às %s.", event.ClientName, event.Service,
			event.DateTime.Format("02/01/2006 15:04")),
		FireDate:  fireAt.Format(time.RFC3339),
		EventDate: event.DateTime.Format(time.RFC3339),
	}

	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	s.logger.Info("Reminder enqueued", zap.String("event", event.ID), zap.Time("fireAt", fireAt))
	return nil
}

// CancelReminder removes the pending reminder of eventID. A reminder that
// was never enqueued, or already ran, is not an error.
func (s *ReminderScheduler) CancelReminder(ctx context.Context, eventID string) error {
	if s.inspector == nil || eventID == "" {
		return nil
	}
	err := s.inspector.DeleteTask(ReminderQueue, ReminderTaskID(eventID))
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	s.logger.Info("Reminder cancelled", zap.String("event", eventID))
	return nil
}
