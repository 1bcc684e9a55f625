// Package notify delivers rendered notifications to chat webhooks.
package notify

import (
	"context"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Dispatcher sends a notification. Send never returns an error: delivery
// failures are logged and reported as false.
type Dispatcher interface {
	Send(ctx context.Context, n model.Notification) bool
}

// Nop drops every notification. It is used when no webhook is configured.
type Nop struct {
	Logger logger.Logger
}

// Send logs the dropped notification and reports false.
func (n Nop) Send(ctx context.Context, note model.Notification) bool {
	metrics.RecordNotification("dropped")
	if n.Logger != nil {
		n.Logger.Debug(ctx, "notification dropped, no webhook configured",
			logger.String("destination", note.Destination),
			logger.String("key", note.Key))
	}
	return false
}
