// Package worker runs the alert reminder loop: on every tick it emails the
// project owner of each due alert and stamps the alert once delivered. It
// keeps its own run history and activity log for the admin API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AlertSource finds due alerts and stamps them once the reminder went out
type AlertSource interface {
	ListDueAlerts(ctx context.Context, now time.Time, limit int, exclude []int) ([]models.AlertReminder, error)
	MarkAlertReminded(ctx context.Context, id int, at time.Time) error
}

// ReminderSender delivers a single reminder. An error matching
// contextutils.ErrDeliverySkipped means nothing was sent.
type ReminderSender interface {
	SendAlertReminder(ctx context.Context, reminder models.AlertReminder) error
}

// Worker sends alert reminders every cfg.Worker.Interval
type Worker struct {
	alerts   AlertSource
	sender   ReminderSender
	instance string
	interval time.Duration
	batch    int
	logger   *observability.Logger

	mu       sync.RWMutex
	status   Status
	history  ring[RunRecord]
	activity ring[ActivityLog]

	manualTrigger chan struct{}
	backoff       *retryBackoff
	timeNow       func() time.Time
}

// NewWorker creates a Worker. An empty instance name becomes "default".
func NewWorker(alerts AlertSource, sender ReminderSender, instance string, cfg *config.Config, logger *observability.Logger) *Worker {
	if instance == "" {
		instance = "default"
	}
	return &Worker{
		alerts:        alerts,
		sender:        sender,
		instance:      instance,
		interval:      cfg.Worker.Interval,
		batch:         cfg.Worker.BatchSize,
		logger:        logger,
		status:        Status{CurrentActivity: "Initialized", IsPaused: cfg.Worker.StartPaused},
		history:       newRing[RunRecord](cfg.Worker.MaxHistory),
		activity:      newRing[ActivityLog](maxActivityLogs),
		manualTrigger: make(chan struct{}, 1),
		backoff:       newRetryBackoff(),
		timeNow:       time.Now,
	}
}

// Start runs the loop until ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.mu.Lock()
	w.status.IsRunning = true
	w.status.NextRun = w.timeNow().Add(w.interval)
	mode := "running"
	if w.status.IsPaused {
		mode = "paused"
	}
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker started", map[string]interface{}{"instance": w.instance, "status": mode, "interval": w.interval.String()})
	w.logActivity("INFO", fmt.Sprintf("Worker %s started (%s)", w.instance, mode), nil)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			w.logger.Info(ctx, "Worker stopped", map[string]interface{}{"instance": w.instance})
			w.logActivity("INFO", fmt.Sprintf("Worker %s stopped", w.instance), nil)
			return
		case <-ticker.C:
			w.run(ctx)
		case <-w.manualTrigger:
			w.logActivity("INFO", fmt.Sprintf("Worker %s triggered manually", w.instance), nil)
			w.run(ctx)
		}
	}
}

// run is one scheduled pass; it is a no-op while paused
func (w *Worker) run(ctx context.Context) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run", attribute.String("worker.instance", w.instance))
	defer observability.FinishSpan(span, nil)

	start := w.timeNow()
	w.mu.Lock()
	w.status.NextRun = start.Add(w.interval)
	if w.status.IsPaused {
		w.status.CurrentActivity = "Worker instance paused"
		w.mu.Unlock()
		span.SetAttributes(attribute.Bool("worker.paused", true))
		return
	}
	w.status.LastRunStart = start
	w.status.CurrentActivity = "Sending alert reminders"
	w.mu.Unlock()

	result, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error(ctx, "Worker run failed", err, map[string]interface{}{"instance": w.instance})
	}

	finish := w.timeNow()
	record := RunRecord{StartTime: start, EndTime: finish, Duration: finish.Sub(start), Status: "Success", Details: result.String()}
	if err != nil {
		record.Status, record.Details = "Failure", err.Error()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.LastRunFinish = finish
	w.status.CurrentActivity = "Idle"
	w.status.TotalReminders += result.Sent
	w.status.LastRunError = ""
	if err != nil {
		w.status.LastRunError = err.Error()
	}
	w.history.push(record)
}

// RunOnce sends reminders for up to batch due alerts. Alerts still backing
// off are excluded from the query so they cannot crowd out newer ones.
// A failed or skipped delivery leaves the alert unstamped for a later run.
func (w *Worker) RunOnce(ctx context.Context) (result RunResult, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run_once", attribute.String("worker.instance", w.instance))
	defer observability.FinishSpan(span, &err)

	now := w.timeNow()
	waiting := w.backoff.waiting(now)
	due, err := w.alerts.ListDueAlerts(ctx, now, w.batch, waiting)
	if err != nil {
		return result, err
	}
	result.Due = len(due)
	result.Deferred = len(waiting)
	if len(due) < w.batch {
		w.backoff.prune(due, now)
	}

	for _, reminder := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch err := w.deliver(ctx, reminder, now); {
		case err == nil:
			result.Sent++
		case errors.Is(err, contextutils.ErrDeliverySkipped):
			result.Skipped++
		default:
			result.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("alerts.due", result.Due),
		attribute.Int("alerts.sent", result.Sent),
		attribute.Int("alerts.failed", result.Failed),
		attribute.Int("alerts.skipped", result.Skipped),
		attribute.Int("alerts.deferred", result.Deferred),
	)
	if result.Due > 0 {
		w.logger.Info(ctx, "Alert reminders processed", map[string]interface{}{
			"instance": w.instance,
			"due":      result.Due,
			"sent":     result.Sent,
			"failed":   result.Failed,
			"skipped":  result.Skipped,
			"deferred": result.Deferred,
		})
	}
	return result, nil
}

func (w *Worker) deliver(ctx context.Context, reminder models.AlertReminder, now time.Time) error {
	id := reminder.Alert.ID
	if err := w.sender.SendAlertReminder(ctx, reminder); err != nil {
		entry := w.backoff.fail(id, now)
		fields := map[string]interface{}{
			"instance":      w.instance,
			"alert_id":      id,
			"failure_count": entry.failures,
			"next_retry":    entry.retryAt,
		}
		if errors.Is(err, contextutils.ErrDeliverySkipped) {
			w.logger.Warn(ctx, "Alert reminder not sent, backing off", fields)
			w.logActivity("WARN", fmt.Sprintf("Reminder for alert %d not sent: %v", id, err), &id)
			return err
		}
		w.logger.Warn(ctx, "Alert reminder failed, backing off", fields)
		w.logActivity("ERROR", fmt.Sprintf("Reminder for alert %d failed: %v", id, err), &id)
		return err
	}

	w.backoff.clear(id)
	// the email went out; a failed stamp only means the alert may be sent again
	if err := w.alerts.MarkAlertReminded(ctx, id, now); err != nil {
		w.logger.Error(ctx, "Failed to mark alert reminded", err, map[string]interface{}{"alert_id": id})
	}
	w.logActivity("INFO", fmt.Sprintf("Reminder sent for alert %d to %s", id, reminder.RecipientEmail), &id)
	return nil
}

// GetStatus returns a copy of the live status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns the most recent runs, oldest first
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.history.snapshot()
}

// GetActivityLogs returns the most recent activity, oldest first
func (w *Worker) GetActivityLogs() []ActivityLog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activity.snapshot()
}

// GetInstance returns the worker instance name
func (w *Worker) GetInstance() string {
	return w.instance
}

// TriggerManualRun asks the loop for an immediate pass. Triggers made while
// one is already pending are coalesced.
func (w *Worker) TriggerManualRun() {
	select {
	case w.manualTrigger <- struct{}{}:
	default:
	}
}

// Pause stops reminders until Resume is called
func (w *Worker) Pause(ctx context.Context) {
	w.setPaused(ctx, true)
}

// Resume re-enables reminders
func (w *Worker) Resume(ctx context.Context) {
	w.setPaused(ctx, false)
}

func (w *Worker) setPaused(ctx context.Context, paused bool) {
	w.mu.Lock()
	w.status.IsPaused = paused
	w.mu.Unlock()

	verb := "resumed"
	if paused {
		verb = "paused"
	}
	w.logger.Info(ctx, "Worker "+verb, map[string]interface{}{"instance": w.instance})
	w.logActivity("INFO", fmt.Sprintf("Worker %s %s", w.instance, verb), nil)
}

func (w *Worker) logActivity(level, message string, alertID *int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activity.push(ActivityLog{Timestamp: w.timeNow(), Level: level, Message: message, AlertID: alertID})
}
