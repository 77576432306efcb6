package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// NotificationWorker owns the notification queue and the goroutines draining it.
type NotificationWorker struct {
	dispatcher *events.AsyncDispatcher
	cfg        config.NotificationConfig
	logger     *zap.Logger
}

// NewNotificationWorker builds the queue. Nothing is delivered until Start.
func NewNotificationWorker(cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		dispatcher: events.NewAsyncDispatcher(cfg.QueueSize, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// Dispatcher is the publisher handed to services.
func (w *NotificationWorker) Dispatcher() events.Dispatcher {
	return w.dispatcher
}

// Start subscribes the notification handlers and launches the workers.
func (w *NotificationWorker) Start(ctx context.Context, notifications *service.NotificationService) {
	if notifications != nil {
		w.dispatcher.OnDrop(notifications.RecordDropped)
		notifications.RegisterHandlers()
	}
	w.dispatcher.Start(ctx, w.cfg.Workers)
	w.logger.Info("notification worker started",
		zap.Int("workers", w.cfg.Workers),
		zap.Int("queue_size", w.cfg.QueueSize))
}

// Stop drains queued notifications, giving up after the configured shutdown timeout.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.ShutdownTimeout())
	defer cancel()
	pending := w.dispatcher.Pending()
	if err := w.dispatcher.Close(ctx); err != nil {
		w.logger.Warn("notification queue not drained", zap.Int("pending", pending), zap.Error(err))
		return err
	}
	w.logger.Info("notification worker stopped", zap.Int("drained", pending))
	return nil
}
