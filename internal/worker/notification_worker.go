package worker

import (
	"context"

	"github.com/spec-kit/wage-wallet/internal/events"
	"github.com/spec-kit/wage-wallet/internal/observability"
	"github.com/spec-kit/wage-wallet/internal/service"
)

// StartNotificationWorker registers the notification handlers and an event
// counter on the dispatcher. Handlers run synchronously after each commit;
// nothing is scheduled.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, metrics *observability.Metrics) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.WalletEventTypes {
		dispatcher.Subscribe(eventType, countEvent(metrics))
	}
}

// countEvent records published events as "event:<type>|<actor type>".
func countEvent(metrics *observability.Metrics) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		metrics.RecordOperation("event:"+string(event.Type), string(event.Actor.Type))
		return nil
	}
}
