package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/config"
	"github.com/cimara/stockledger/internal/service/reporting"
	"github.com/cimara/stockledger/pkg/clients/webhook"
)

// Scheduler runs the periodic low-stock sweep across all stores and
// pushes the findings to the ops webhook.
type Scheduler struct {
	cron         *cron.Cron
	reportingSvc *reporting.Service
	notifier     webhook.Notifier
	cfg          config.AlertsConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.AlertsConfig, reportingSvc *reporting.Service, notifier webhook.Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = webhook.Nop{}
	}

	return &Scheduler{
		cron:         cron.New(),
		reportingSvc: reportingSvc,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the low-stock sweep on the configured cron schedule
// and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runLowStockSweep); err != nil {
		s.logger.Error("failed to schedule low stock sweep", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runLowStockSweep() {
	s.logger.Info("running low stock sweep", zap.Int("threshold", s.cfg.LowStockThreshold))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	alerts, err := s.reportingSvc.LowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		s.logger.Error("low stock sweep failed", zap.Error(err))
		return
	}

	if len(alerts) == 0 {
		s.logger.Info("low stock sweep clean")
		return
	}

	alert := webhook.Alert{
		Kind:    webhook.KindLowStock,
		Message: fmt.Sprintf("%d equipment lines under threshold %d", len(alerts), s.cfg.LowStockThreshold),
		Details: alerts,
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Warn("failed to deliver low stock alert", zap.Error(err))
	} else {
		s.logger.Info("low stock alert delivered", zap.Int("lines", len(alerts)))
	}
}
