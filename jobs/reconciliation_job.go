package jobs

import (
	"log"
	"time"

	"conference-booking-server/services"
)

// ReconciliationJob runs both repair passes on a fixed interval. Each pass
// is idempotent, so overlapping manual runs from the admin endpoints are
// harmless.
type ReconciliationJob struct {
	reconciliation *services.ReconciliationService
	notifier       services.Notifier
	interval       time.Duration
	stopChan       chan bool
}

// NewReconciliationJob creates a new reconciliation job
func NewReconciliationJob(reconciliation *services.ReconciliationService, notifier services.Notifier, interval time.Duration) *ReconciliationJob {
	return &ReconciliationJob{
		reconciliation: reconciliation,
		notifier:       notifier,
		interval:       interval,
		stopChan:       make(chan bool),
	}
}

// Start begins the reconciliation job
func (j *ReconciliationJob) Start() {
	go j.run()
	log.Println("🚀 Reconciliation job started")
}

// Stop stops the reconciliation job
func (j *ReconciliationJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Reconciliation job stopped")
}

func (j *ReconciliationJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-j.stopChan:
			return
		}
	}
}

// RunOnce executes both passes: start-link refresh first, then the
// missing-meeting repair.
func (j *ReconciliationJob) RunOnce() {
	refresh, err := j.reconciliation.RefreshStartLinks()
	if err != nil {
		log.Printf("❌ Start-link refresh failed: %v", err)
	} else {
		j.notify("reconciliation_summary", refresh)
	}

	repair, err := j.reconciliation.RepairMissingMeetings()
	if err != nil {
		log.Printf("❌ Missing-meeting repair failed: %v", err)
	} else {
		j.notify("reconciliation_summary", repair)
	}
}

func (j *ReconciliationJob) notify(eventType string, data interface{}) {
	if j.notifier != nil {
		j.notifier.NotifyBookingEvent(eventType, data)
	}
}
