package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/remivoice/remi/internal/notifications"
	"github.com/remivoice/remi/internal/store"
)

// ReminderNotifierJob scans for due reminders on a fixed interval and
// pushes a notification to every device token registered for the owning
// device. Reminders with unparseable literal date/time strings never come
// due and are skipped by the store query.
type ReminderNotifierJob struct {
	store     *store.Store
	apns      *notifications.APNsClient
	logger    *log.Logger
	interval  time.Duration
	lookAhead time.Duration
	batch     int
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewReminderNotifierJob creates a new due-reminder notifier.
func NewReminderNotifierJob(s *store.Store, apns *notifications.APNsClient, logger *log.Logger, interval time.Duration) *ReminderNotifierJob {
	if interval == 0 {
		interval = 1 * time.Minute
	}
	return &ReminderNotifierJob{
		store:     s,
		apns:      apns,
		logger:    logger,
		interval:  interval,
		lookAhead: 5 * time.Minute,
		batch:     200,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background job.
func (j *ReminderNotifierJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("ReminderNotifier: started (interval=%v)", j.interval)
}

// Stop gracefully stops the background job.
func (j *ReminderNotifierJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("ReminderNotifier: stopped")
}

func (j *ReminderNotifierJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.processDue()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.processDue()
		case <-j.stopCh:
			return
		}
	}
}

func (j *ReminderNotifierJob) processDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	horizon := time.Now().UTC().Add(j.lookAhead)
	due, err := j.store.DueReminders(ctx, horizon, j.batch)
	if err != nil {
		j.logger.Printf("ReminderNotifier: failed to query due reminders: %v", err)
		return
	}

	for _, r := range due {
		j.notifyReminder(ctx, r)
		if err := j.store.MarkReminderNotified(ctx, r.ID, time.Now().UTC()); err != nil {
			j.logger.Printf("ReminderNotifier: failed to mark %s notified: %v", r.ID, err)
		}
	}
}

func (j *ReminderNotifierJob) notifyReminder(ctx context.Context, r store.Reminder) {
	tokens, err := j.store.GetDevicePushTokens(ctx, r.DeviceID)
	if err != nil {
		j.logger.Printf("ReminderNotifier: failed to get push tokens for device %s: %v", r.DeviceID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	notif := notifications.ReminderNotification{
		ReminderID: r.ID,
		Text:       r.Text,
		Date:       r.Date,
		Time:       r.Time,
	}

	for _, t := range tokens {
		if err := j.apns.SendReminderNotification(t.Token, notif); err != nil {
			j.logger.Printf("ReminderNotifier: push failed for reminder %s: %v", r.ID, err)
		}
	}
}
