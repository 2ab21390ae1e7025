package workers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ping_backend/internal/logger"
	"ping_backend/internal/models"
	"ping_backend/internal/repositories"
	"ping_backend/internal/services"
	"ping_backend/internal/services/dto"
	"ping_backend/pkg/apperrors"
)

// OutboxWorkerOptions tune the poll loop. Zero values fall back to the
// defaults below.
type OutboxWorkerOptions struct {
	Interval       time.Duration
	BatchSize      int
	ResolveTimeout time.Duration
	MaxAttempts    int
	// Retention is how long read rows are kept. Zero disables purging.
	Retention time.Duration
}

const purgeInterval = time.Hour

// OutboxWorker drains the notification outbox: it resolves each committed
// fact to its recipients, writes one notification per recipient, and retires
// the event. Failures are retried on later polls until MaxAttempts.
type OutboxWorker struct {
	outbox        repositories.OutboxRepository
	notifications repositories.NotificationRepository
	resolver      services.RecipientResolver
	writer        services.NotificationService
	opts          OutboxWorkerOptions
}

func NewOutboxWorker(
	outbox repositories.OutboxRepository,
	notifications repositories.NotificationRepository,
	resolver services.RecipientResolver,
	writer services.NotificationService,
	opts OutboxWorkerOptions,
) *OutboxWorker {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &OutboxWorker{
		outbox:        outbox,
		notifications: notifications,
		resolver:      resolver,
		writer:        writer,
		opts:          opts,
	}
}

// Run polls until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	logger.Info("outbox worker started",
		"interval", w.opts.Interval.String(),
		"batch_size", w.opts.BatchSize,
	)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	purge := time.NewTicker(purgeInterval)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				logger.WithError(err).Error("outbox poll failed")
			}
		case <-purge.C:
			w.purgeExpired(ctx)
		}
	}
}

// RunOnce processes a single batch of pending events.
func (w *OutboxWorker) RunOnce(ctx context.Context) error {
	events, err := w.outbox.FetchPending(ctx, w.opts.BatchSize, w.opts.MaxAttempts)
	if err != nil {
		return err
	}

	for i := range events {
		event := &events[i]
		if err := w.processEvent(ctx, event); err != nil {
			attempts := event.Attempts + 1
			logger.WithError(err).Warn("outbox event failed",
				"event_id", event.ID,
				"kind", event.Kind,
				"attempt", attempts,
			)
			if markErr := w.outbox.MarkRetry(ctx, event.ID, attempts, w.opts.MaxAttempts, err.Error()); markErr != nil {
				logger.WithError(markErr).Error("failed to mark outbox event for retry", "event_id", event.ID)
			}
			continue
		}
		if err := w.outbox.MarkProcessed(ctx, event.ID, time.Now().UTC()); err != nil {
			logger.WithError(err).Error("failed to mark outbox event processed", "event_id", event.ID)
		}
	}
	return nil
}

// processEvent fans one fact out to its recipients. Partial failure leaves
// the event pending; already-written recipients are protected by the
// store-level uniqueness constraint, so a retry never double-notifies.
func (w *OutboxWorker) processEvent(ctx context.Context, event *models.OutboxEvent) error {
	fact := w.toFact(event)

	resolveCtx, cancel := context.WithTimeout(ctx, w.opts.ResolveTimeout)
	recipients, err := w.resolver.Resolve(resolveCtx, fact)
	cancel()
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		logger.Debug("fact resolved to no recipients", "event_id", event.ID, "kind", event.Kind)
		return nil
	}

	notificationType := event.Type
	if notificationType == "" {
		notificationType = models.DefaultNotificationType(event.Kind)
	}

	for _, recipientUserID := range recipients {
		input := &dto.CreateNotificationInput{
			RecipientUserID:      recipientUserID,
			ActorUserID:          event.ActorUserID,
			DirectConversationID: deref(event.DirectConversationID),
			ChannelID:            deref(event.ChannelID),
			MessageID:            deref(event.MessageID),
			Type:                 notificationType,
			Text:                 event.Text,
		}
		if _, err := w.writer.CreateNotification(ctx, input); err != nil {
			// Validation failures never heal on retry; skip the recipient
			// rather than pinning the event in the queue.
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.CodeValidationFailed {
				logger.WithError(err).Warn("skipping invalid notification",
					"event_id", event.ID,
					"recipient_user_id", recipientUserID,
				)
				continue
			}
			return err
		}
	}
	return nil
}

func (w *OutboxWorker) toFact(event *models.OutboxEvent) *dto.Fact {
	fact := &dto.Fact{
		Kind:                 event.Kind,
		ActorUserID:          event.ActorUserID,
		RecipientUserID:      deref(event.RecipientUserID),
		DirectConversationID: deref(event.DirectConversationID),
		ChannelID:            deref(event.ChannelID),
		MessageID:            deref(event.MessageID),
		TargetID:             deref(event.TargetID),
		Type:                 event.Type,
		Text:                 event.Text,
	}
	if len(event.TargetUserIDs) > 0 {
		var ids []string
		if err := json.Unmarshal(event.TargetUserIDs, &ids); err == nil {
			fact.TargetUserIDs = ids
		}
	}
	return fact
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// purgeExpired deletes read notifications past the retention window.
func (w *OutboxWorker) purgeExpired(ctx context.Context) {
	if w.opts.Retention <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-w.opts.Retention)
	deleted, err := w.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		logger.WithError(err).Error("retention purge failed")
		return
	}
	if deleted > 0 {
		logger.Info("purged read notifications", "deleted", deleted, "cutoff", cutoff)
	}
}
