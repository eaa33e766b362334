package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/events"
)

// NotificationService emits notifications for committed wallet events.
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
	n.dispatcher.Subscribe(events.EventRedemptionCommitted, n.handleRedemptionCommitted)
	n.dispatcher.Subscribe(events.EventCreditCommitted, n.handleCreditCommitted)
	n.dispatcher.Subscribe(events.EventPaymentRequestCreated, n.handlePaymentRequestCreated)
	n.dispatcher.Subscribe(events.EventPaymentRequestApproved, n.handlePaymentRequestResolved)
	n.dispatcher.Subscribe(events.EventPaymentRequestRejected, n.handlePaymentRequestResolved)
	n.dispatcher.Subscribe(events.EventStaffRegistered, n.handleStaffRegistered)
}

func (n *NotificationService) handleRedemptionCommitted(ctx context.Context, event events.Event) error {
	n.logger.Info("RedemptionCommitted", zap.String("staff_code", event.StaffCode), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCreditCommitted(ctx context.Context, event events.Event) error {
	n.logger.Info("CreditCommitted", zap.String("staff_code", event.StaffCode), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePaymentRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("PaymentRequestCreated", zap.String("staff_code", event.StaffCode), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePaymentRequestResolved(ctx context.Context, event events.Event) error {
	n.logger.Info("PaymentRequestResolved",
		zap.String("staff_code", event.StaffCode),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStaffRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("StaffRegistered", zap.String("staff_code", event.StaffCode), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("staff_code", event.StaffCode),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("staff_code", event.StaffCode),
		zap.String("event_type", string(event.Type)))
}
