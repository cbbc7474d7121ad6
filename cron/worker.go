package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartcalendar/config"
	eventRepo "smartcalendar/database/repository/event"
	"smartcalendar/models"
	"smartcalendar/services/tasks"
	"smartcalendar/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderNotifier delivers a due reminder.
type ReminderNotifier interface {
	Notify(ctx context.Context, p models.ReminderPayload) error
}

// LogNotifier writes reminders to the application log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, p models.ReminderPayload) error {
	n.Logger.Info("Booking reminder",
		zap.String("event", p.EventID),
		zap.String("client", p.ClientName),
		zap.String("title", p.Title),
		zap.String("body", p.Body),
	)
	return nil
}

// EventLookup finds the booking a reminder belongs to.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

// RedisQueueOpt is the asynq connection for the reminder queue.
func RedisQueueOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitReminderWorker runs the async worker in background. The returned server
// must be shut down by the caller.
func InitReminderWorker(ctx context.Context, notifier ReminderNotifier, events EventLookup) *asynq.Server {
	logger := utils.GetLogger()

	srv := asynq.NewServer(
		RedisQueueOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, HandleReminderTask(notifier, events, logger))

	go monitorRedisConnection(ctx, logger)

	go func() {
		logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				return
			}
			logger.Warn("Reminder worker failed to start", zap.Int("attempt", attempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("Max retry attempts reached, reminders disabled")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
	return srv
}

// HandleReminderTask delivers a due reminder. When events is set, reminders
// whose booking was removed or moved are dropped.
func HandleReminderTask(notifier ReminderNotifier, events EventLookup, logger *zap.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			// Malformed payloads never succeed; do not retry them.
			return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
		}
		if events != nil && p.EventID != "" {
			event, err := events.GetByID(ctx, p.EventID)
			if errors.Is(err, eventRepo.ErrEventNotFound) {
				logger.Info("Dropping reminder for removed booking", zap.String("event", p.EventID))
				return nil
			}
			if err != nil {
				return fmt.Errorf("look up booking %s: %w", p.EventID, err)
			}
			if stale(p, event) {
				logger.Info("Dropping reminder for moved booking", zap.String("event", p.EventID))
				return nil
			}
		}
		return notifier.Notify(ctx, p)
	}
}

func stale(p models.ReminderPayload, event *models.Event) bool {
	if p.EventDate == "" {
		return false
	}
	start, err := time.Parse(time.RFC3339, p.EventDate)
	if err != nil {
		return false
	}
	return !start.Equal(event.DateTime.Truncate(time.Second))
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("Reminder queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
