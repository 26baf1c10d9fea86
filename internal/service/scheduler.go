package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler drives the dispatcher on a fixed polling interval. Used by
// the long-running server; the one-shot worker calls RunBatch directly.
type Scheduler struct {
	dispatcher  *Dispatcher
	intervalSec int
	logger      *logrus.Logger
	stopCh      chan struct{}
}

func NewScheduler(dispatcher *Dispatcher, intervalSec int, logger *logrus.Logger) *Scheduler {
	if intervalSec <= 0 {
		intervalSec = 60
	}
	return &Scheduler{
		dispatcher:  dispatcher,
		intervalSec: intervalSec,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.intervalSec) * time.Second)
	defer ticker.Stop()

	s.logger.WithField("intervalSec", s.intervalSec).Info("Starting job scheduler")

	s.runBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runBatch(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runBatch(ctx context.Context) {
	processed, err := s.dispatcher.RunBatch(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Job batch failed")
		return
	}
	if processed > 0 {
		s.logger.WithField("processed", processed).Debug("Job batch completed")
	}
}
