package jobs

import (
	"context"
	"log"
	"time"

	"daily-flip/internal/services"
)

// WithdrawalJob periodically drains the withdrawal queue. Manual triggers
// through the HTTP endpoint share the processor's single-flight guard, so
// overlapping runs collapse into one.
type WithdrawalJob struct {
	withdrawals *services.WithdrawalService
	interval    time.Duration
	stopChan    chan struct{}
}

// NewWithdrawalJob creates a new withdrawal processor job
func NewWithdrawalJob(withdrawals *services.WithdrawalService, interval time.Duration) *WithdrawalJob {
	return &WithdrawalJob{
		withdrawals: withdrawals,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the processing loop
func (j *WithdrawalJob) Start() {
	log.Printf("[WithdrawalJob] Starting withdrawal processing job (interval: %v)", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runOnce()
		case <-j.stopChan:
			log.Println("[WithdrawalJob] Stopping withdrawal processing job")
			return
		}
	}
}

// Stop stops the processing loop
func (j *WithdrawalJob) Stop() {
	close(j.stopChan)
}

func (j *WithdrawalJob) runOnce() {
	ctx := context.Background()

	result, err := j.withdrawals.ProcessPending(ctx)
	if err != nil {
		log.Printf("[WithdrawalJob] Error processing withdrawals: %v", err)
		return
	}

	if result.Skipped {
		log.Println("[WithdrawalJob] Run already in flight, skipping")
		return
	}

	if result.Processed > 0 {
		log.Printf("[WithdrawalJob] Processed %d withdrawals (%d succeeded, %d failed)",
			result.Processed, result.Succeeded, result.Failed)
	}
}
