package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/domain"
	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/observability"
	"github.com/spec-kit/wage-wallet/internal/service"
)

func TestWorkerCountsPublishedEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	notifications := service.NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{})

	StartNotificationWorker(dispatcher, notifications, metrics)

	actor := events.Actor{Type: domain.SubjectTypeAdmin, Identity: "admin-1"}
	event := events.NewEvent(events.EventCreditCommitted, "ALHQR001", actor, time.Now(), events.CreditCommittedPayload{Amount: 10})
	if err := dispatcher.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := metrics.Snapshot().Operations["event:credit_committed|ADMIN"]
	if got != 1 {
		t.Fatalf("expected one counted event, got %d", got)
	}
}

func TestWorkerToleratesMissingDispatcher(t *testing.T) {
	StartNotificationWorker(nil, nil, nil)
}
