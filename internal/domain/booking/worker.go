package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker periodically expires approved bookings whose payment window has
// elapsed. It is a safety net: the payment path also checks the deadline,
// so the sweep only has to catch bookings nobody came back for.
type Worker struct {
	service  *Service
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWorker creates an expiry sweep worker
func NewWorker(service *Service, interval time.Duration) *Worker {
	return &Worker{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine
func (w *Worker) Start() {
	go w.run()
	log.Info().Dur("interval", w.interval).Msg("booking expiry worker started")
}

// Stop signals the loop to exit and waits for the in-flight sweep
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	log.Info().Msg("booking expiry worker stopped")
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once on startup to clear any backlog from downtime
	w.sweep()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := w.service.ExpireOverdueApprovals(ctx)
	if err != nil {
		log.Error().Err(err).Msg("booking expiry sweep failed")
		return
	}
	if expired > 0 {
		log.Info().Int64("count", expired).Msg("expired overdue bookings")
	}
}
