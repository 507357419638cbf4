package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/tracker-service/internal/config"
	"github.com/spec-kit/tracker-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleEvent)
	n.dispatcher.Subscribe(events.EventPostCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventPostUpdated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventPostDeleted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventCommentCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventCommentUpdated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventCommentDeleted, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("domain event",
		zap.String("type", string(event.Type)),
		zap.String("resource_type", string(event.ResourceType)),
		zap.Int64("resource_id", event.ResourceID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.Int64("resource_id", event.ResourceID))
}
