package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAlertSource struct {
	mock.Mock
}

func (m *mockAlertSource) ListDueAlerts(ctx context.Context, now time.Time, limit int, exclude []int) ([]models.AlertReminder, error) {
	args := m.Called(ctx, now, limit, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AlertReminder), args.Error(1)
}

func (m *mockAlertSource) MarkAlertReminded(ctx context.Context, id int, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendAlertReminder(ctx context.Context, reminder models.AlertReminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

var fakeNow = time.Date(2025, 3, 19, 8, 0, 0, 0, time.UTC)

func testWorkerConfig() *config.Config {
	cfg := &config.Config{IsTest: true}
	cfg.ApplyDefaults()
	cfg.Worker.MaxHistory = 3
	return cfg
}

func newTestWorker(alerts AlertSource, sender ReminderSender) *Worker {
	w := NewWorker(alerts, sender, "test-instance", testWorkerConfig(), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	w.timeNow = func() time.Time { return fakeNow }
	return w
}

func reminder(id int) models.AlertReminder {
	return models.AlertReminder{
		Alert:          models.Alert{ID: id, ProjectID: 10, Description: "Revision due", ScheduledAt: fakeNow.Add(-time.Hour), ProjectName: "Commercial Building"},
		RecipientID:    2,
		RecipientName:  "Ana",
		RecipientEmail: "ana@example.com",
	}
}

func TestNewWorker_DefaultInstance(t *testing.T) {
	w := NewWorker(&mockAlertSource{}, &mockSender{}, "", testWorkerConfig(), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	assert.Equal(t, "default", w.GetInstance())
	assert.NotNil(t, w.manualTrigger)
	assert.False(t, w.GetStatus().IsPaused)
}

func TestNewWorker_StartPaused(t *testing.T) {
	cfg := testWorkerConfig()
	cfg.Worker.StartPaused = true
	w := NewWorker(&mockAlertSource{}, &mockSender{}, "w1", cfg, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	assert.True(t, w.GetStatus().IsPaused)
}

func TestRunOnce_SendsAndMarks(t *testing.T) {
	alerts := &mockAlertSource{}
	sender := &mockSender{}
	alerts.On("ListDueAlerts", mock.Anything, fakeNow, config.DefaultWorkerBatchSize, []int(nil)).Return([]models.AlertReminder{reminder(55), reminder(56)}, nil)
	sender.On("SendAlertReminder", mock.Anything, reminder(55)).Return(nil)
	sender.On("SendAlertReminder", mock.Anything, reminder(56)).Return(errors.New("smtp down"))
	alerts.On("MarkAlertReminded", mock.Anything, 55, fakeNow).Return(nil)

	w := newTestWorker(alerts, sender)
	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunResult{Due: 2, Sent: 1, Failed: 1}, result)
	alerts.AssertExpectations(t)
	sender.AssertExpectations(t)
	alerts.AssertNotCalled(t, "MarkAlertReminded", mock.Anything, 56, mock.Anything)

	logs := w.GetActivityLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "INFO", logs[0].Level)
	assert.Equal(t, "ERROR", logs[1].Level)
	assert.Equal(t, 56, *logs[1].AlertID)
}

func TestRunOnce_BacksOffFailedAlerts(t *testing.T) {
	alerts := &mockAlertSource{}
	sender := &mockSender{}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, []int(nil)).Return([]models.AlertReminder{reminder(56)}, nil)
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, []int{56}).Return([]models.AlertReminder{}, nil)
	sender.On("SendAlertReminder", mock.Anything, reminder(56)).Return(errors.New("smtp down")).Once()

	w := newTestWorker(alerts, sender)
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	// within the 2 minute backoff window the alert is left out of the query
	w.timeNow = func() time.Time { return fakeNow.Add(time.Minute) }
	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Deferred: 1}, result)
	assert.Equal(t, "Reminded 0 of 0 due alerts (0 failed, 0 not sent, 1 backing off)", result.String())
	sender.AssertNumberOfCalls(t, "SendAlertReminder", 1)

	// after the window it is retried and the backoff cleared
	later := fakeNow.Add(2 * time.Minute)
	w.timeNow = func() time.Time { return later }
	sender.On("SendAlertReminder", mock.Anything, reminder(56)).Return(nil).Once()
	alerts.On("MarkAlertReminded", mock.Anything, 56, later).Return(nil)
	result, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Zero(t, w.backoff.pending())
}

func TestRunOnce_FailingBatchDoesNotStarveNewAlerts(t *testing.T) {
	alerts := &mockAlertSource{}
	sender := &mockSender{}

	batch := config.DefaultWorkerBatchSize
	failing := make([]models.AlertReminder, 0, batch)
	failingIDs := make([]int, 0, batch)
	for id := 1; id <= batch; id++ {
		failing = append(failing, reminder(id))
		failingIDs = append(failingIDs, id)
	}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, batch, []int(nil)).Return(failing, nil).Once()
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, batch, failingIDs).Return([]models.AlertReminder{reminder(1000)}, nil).Once()
	sender.On("SendAlertReminder", mock.Anything, mock.MatchedBy(func(r models.AlertReminder) bool { return r.Alert.ID != 1000 })).
		Return(errors.New("mailbox full"))
	sender.On("SendAlertReminder", mock.Anything, reminder(1000)).Return(nil).Once()

	w := newTestWorker(alerts, sender)
	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Due: batch, Failed: batch}, result)

	later := fakeNow.Add(time.Minute)
	w.timeNow = func() time.Time { return later }
	alerts.On("MarkAlertReminded", mock.Anything, 1000, later).Return(nil).Once()
	result, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunResult{Due: 1, Sent: 1, Deferred: batch}, result)
	alerts.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestRunOnce_SkippedDeliveryIsNotStamped(t *testing.T) {
	alerts := &mockAlertSource{}
	sender := &mockSender{}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.AlertReminder{reminder(55)}, nil)
	sender.On("SendAlertReminder", mock.Anything, reminder(55)).
		Return(contextutils.WrapError(contextutils.ErrDeliverySkipped, "email is disabled"))

	w := newTestWorker(alerts, sender)
	result, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunResult{Due: 1, Skipped: 1}, result)
	alerts.AssertNotCalled(t, "MarkAlertReminded", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, w.backoff.pending())
	assert.Zero(t, w.GetStatus().TotalReminders)

	logs := w.GetActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "WARN", logs[0].Level)
	assert.Contains(t, logs[0].Message, "not sent")
}

func TestRunOnce_ForgetsResolvedAlerts(t *testing.T) {
	alerts := &mockAlertSource{}
	sender := &mockSender{}
	alerts.On("ListDueAlerts", mock.Anything, fakeNow, mock.Anything, []int(nil)).Return([]models.AlertReminder{reminder(56)}, nil).Once()
	sender.On("SendAlertReminder", mock.Anything, reminder(56)).Return(errors.New("smtp down")).Once()

	w := newTestWorker(alerts, sender)
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, w.backoff.pending())

	// still waiting: kept even though the query did not return it
	w.timeNow = func() time.Time { return fakeNow.Add(time.Minute) }
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, []int{56}).Return([]models.AlertReminder{}, nil).Once()
	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, w.backoff.pending())

	// ready again but no longer due: the alert was resolved meanwhile
	w.timeNow = func() time.Time { return fakeNow.Add(3 * time.Minute) }
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, []int(nil)).Return([]models.AlertReminder{}, nil).Once()
	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, w.backoff.pending())
	alerts.AssertExpectations(t)
}

func TestRetryBackoff(t *testing.T) {
	b := newRetryBackoff()
	assert.Empty(t, b.waiting(fakeNow))

	wantDelays := []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute, 16 * time.Minute, 32 * time.Minute, time.Hour, time.Hour}
	for i, want := range wantDelays {
		e := b.fail(7, fakeNow)
		assert.Equal(t, i+1, e.failures)
		assert.Equal(t, fakeNow.Add(want), e.retryAt, "failure %d", i+1)
	}
	for i := 0; i < 50; i++ {
		b.fail(7, fakeNow)
	}
	assert.Equal(t, fakeNow.Add(time.Hour), b.entries[7].retryAt)

	b.fail(3, fakeNow)
	assert.Equal(t, []int{3, 7}, b.waiting(fakeNow.Add(time.Minute)))
	assert.Equal(t, []int{7}, b.waiting(fakeNow.Add(59*time.Minute)))
	assert.Empty(t, b.waiting(fakeNow.Add(time.Hour)))

	b.prune([]models.AlertReminder{reminder(7)}, fakeNow.Add(time.Hour))
	assert.Equal(t, 1, b.pending())

	b.clear(7)
	assert.Zero(t, b.pending())
}

func TestRunOnce_ListError(t *testing.T) {
	alerts := &mockAlertSource{}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	w := newTestWorker(alerts, &mockSender{})
	_, err := w.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestRun_RecordsHistoryAndStatus(t *testing.T) {
	alerts := &mockAlertSource{}
	sender := &mockSender{}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.AlertReminder{reminder(55)}, nil)
	sender.On("SendAlertReminder", mock.Anything, mock.Anything).Return(nil)
	alerts.On("MarkAlertReminded", mock.Anything, 55, fakeNow).Return(nil)

	w := newTestWorker(alerts, sender)
	for i := 0; i < 4; i++ {
		w.run(context.Background())
	}

	history := w.GetHistory()
	assert.Len(t, history, 3)
	assert.Equal(t, "Success", history[0].Status)
	assert.Equal(t, "Reminded 1 of 1 due alerts (0 failed, 0 not sent, 0 backing off)", history[0].Details)

	status := w.GetStatus()
	assert.Equal(t, 4, status.TotalReminders)
	assert.Empty(t, status.LastRunError)
	assert.Equal(t, fakeNow.Add(config.DefaultWorkerInterval), status.NextRun)
}

func TestRun_Failure(t *testing.T) {
	alerts := &mockAlertSource{}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	w := newTestWorker(alerts, &mockSender{})
	w.run(context.Background())

	assert.Equal(t, "db down", w.GetStatus().LastRunError)
	history := w.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "Failure", history[0].Status)
}

func TestRun_SkipsWhenPaused(t *testing.T) {
	alerts := &mockAlertSource{}
	w := newTestWorker(alerts, &mockSender{})

	w.Pause(context.Background())
	w.run(context.Background())

	alerts.AssertNotCalled(t, "ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "Worker instance paused", w.GetStatus().CurrentActivity)
	assert.Empty(t, w.GetHistory())

	w.Resume(context.Background())
	assert.False(t, w.GetStatus().IsPaused)
}

func TestTriggerManualRun_SendsToChannel(t *testing.T) {
	w := newTestWorker(&mockAlertSource{}, &mockSender{})

	w.TriggerManualRun()
	// a second trigger must not block while one is pending
	w.TriggerManualRun()

	select {
	case <-w.manualTrigger:
	default:
		t.Error("Expected manual trigger to be sent")
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	alerts := &mockAlertSource{}
	alerts.On("ListDueAlerts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.AlertReminder{}, nil)

	w := newTestWorker(alerts, &mockSender{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	w.TriggerManualRun()
	require.Eventually(t, func() bool { return len(w.GetHistory()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, w.GetStatus().IsRunning)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, w.GetStatus().IsRunning)
}

func TestLogActivity_CircularBuffer(t *testing.T) {
	w := newTestWorker(&mockAlertSource{}, &mockSender{})

	for i := 0; i < maxActivityLogs+10; i++ {
		w.logActivity("INFO", fmt.Sprintf("message %d", i), nil)
	}

	logs := w.GetActivityLogs()
	assert.Len(t, logs, maxActivityLogs)
	assert.Equal(t, "message 10", logs[0].Message)
}
