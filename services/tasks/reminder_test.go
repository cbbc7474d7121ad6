package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"smartcalendar/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{}, nil
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteTask(queue, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, queue+"/"+id)
	return nil
}

func TestScheduleReminderEnqueuesBeforeBooking(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	fake := &fakeEnqueuer{}
	s := NewReminderScheduler(fake, nil, time.Hour, nil)
	s.now = func() time.Time { return now }

	event := models.Event{ID: "e1", ClientName: "João", Service: "barba", DateTime: now.Add(24 * time.Hour)}
	require.NoError(t, s.ScheduleReminder(context.Background(), event))

	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TypeSendReminder, fake.tasks[0].Type())

	var p models.ReminderPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &p))
	assert.Equal(t, "e1", p.EventID)
	assert.Equal(t, "João", p.ClientName)
	assert.Equal(t, now.Add(23*time.Hour).Format(time.RFC3339), p.FireDate)
	assert.Equal(t, event.DateTime.Format(time.RFC3339), p.EventDate)
}

func TestScheduleReminderSkipsPastFireTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	fake := &fakeEnqueuer{}
	s := NewReminderScheduler(fake, nil, time.Hour, nil)
	s.now = func() time.Time { return now }

	event := models.Event{ID: "e1", DateTime: now.Add(30 * time.Minute)}
	require.NoError(t, s.ScheduleReminder(context.Background(), event))
	assert.Empty(t, fake.tasks)
}

func TestScheduleReminderPropagatesEnqueueError(t *testing.T) {
	fake := &fakeEnqueuer{err: errors.New("redis down")}
	s := NewReminderScheduler(fake, nil, 0, nil)

	err := s.ScheduleReminder(context.Background(), models.Event{ID: "e1", DateTime: time.Now().Add(time.Hour)})
	assert.ErrorContains(t, err, "redis down")
}

func TestCancelReminderDeletesTask(t *testing.T) {
	deleter := &fakeDeleter{}
	s := NewReminderScheduler(&fakeEnqueuer{}, deleter, time.Hour, nil)

	require.NoError(t, s.CancelReminder(context.Background(), "e1"))
	assert.Equal(t, []string{"default/reminder:e1"}, deleter.deleted)
}

func TestCancelReminderIgnoresMissingTask(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("asynq: %w", asynq.ErrTaskNotFound),
		fmt.Errorf("asynq: %w", asynq.ErrQueueNotFound),
	} {
		s := NewReminderScheduler(&fakeEnqueuer{}, &fakeDeleter{err: err}, time.Hour, nil)
		assert.NoError(t, s.CancelReminder(context.Background(), "e1"))
	}

	s := NewReminderScheduler(&fakeEnqueuer{}, &fakeDeleter{err: errors.New("redis down")}, time.Hour, nil)
	assert.ErrorContains(t, s.CancelReminder(context.Background(), "e1"), "redis down")
}

func TestCancelReminderWithoutInspector(t *testing.T) {
	s := NewReminderScheduler(&fakeEnqueuer{}, nil, time.Hour, nil)
	assert.NoError(t, s.CancelReminder(context.Background(), "e1"))
}

func TestReminderTaskIDIsPerEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	fake := &fakeEnqueuer{}
	s := NewReminderScheduler(fake, &fakeDeleter{}, time.Hour, nil)
	s.now = func() time.Time { return now }

	event := models.Event{ID: "e1", DateTime: now.Add(48 * time.Hour)}
	require.NoError(t, s.ScheduleReminder(context.Background(), event))

	task, opts, err := NewReminderTask(models.ReminderPayload{EventID: "e1"}, event.DateTime)
	require.NoError(t, err)
	assert.Equal(t, TypeSendReminder, task.Type())
	assert.Contains(t, opts, asynq.TaskID(ReminderTaskID("e1")))
	assert.Contains(t, fake.opts[0], asynq.TaskID("reminder:e1"))
}
