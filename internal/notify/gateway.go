package notify

import (
	"context"
	"time"

	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/metrics"
	"go.uber.org/multierr"
)

// InboxNotifier delivers messages as per-shop inbox rows.
type InboxNotifier struct {
	repo Repository
}

// NewInboxNotifier builds the inbox-backed notifier.
func NewInboxNotifier(repo Repository) *InboxNotifier {
	return &InboxNotifier{repo: repo}
}

func (n *InboxNotifier) Send(ctx context.Context, message Message) error {
	if len(message.Recipients) == 0 {
		return nil
	}
	rows := make([]models.Notification, 0, len(message.Recipients))
	for _, shopID := range message.Recipients {
		rows = append(rows, models.Notification{
			ShopID:  shopID,
			Type:    message.Type,
			Title:   message.Title,
			Body:    message.Body,
			Payload: message.Payload,
		})
	}
	return n.repo.CreateBatch(ctx, rows)
}

// Gateway applies the best-effort delivery policy: failures are aggregated,
// logged and swallowed. A committed state transition is never rolled back
// because a notification did not go out.
type Gateway struct {
	notifier Notifier
	logg     *logger.Logger
	stats    *metrics.CoreMetrics
	timeout  time.Duration
}

// NewGateway wraps a notifier with the swallow-and-log policy.
func NewGateway(notifier Notifier, logg *logger.Logger, stats *metrics.CoreMetrics) *Gateway {
	return &Gateway{
		notifier: notifier,
		logg:     logg,
		stats:    stats,
		timeout:  5 * time.Second,
	}
}

// Dispatch sends every message, never returning an error to the caller.
func (g *Gateway) Dispatch(ctx context.Context, messages ...Message) {
	if g == nil || g.notifier == nil {
		return
	}
	sendCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var errs error
	for _, message := range messages {
		if len(message.Recipients) == 0 {
			continue
		}
		errs = multierr.Append(errs, g.notifier.Send(sendCtx, message))
	}
	if errs == nil {
		return
	}
	g.stats.IncNotifyFailure()
	if g.logg != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", errs.Error()), "notification dispatch failed")
	}
}
