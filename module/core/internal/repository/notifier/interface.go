package notifier

import (
	"context"
	"log/slog"

	"github.com/nandanugg/proximity/module/core/domain"
)

// ActionPresenter shows a triggered action to the user.
type ActionPresenter interface {
	Present(ctx context.Context, event *domain.BeaconEvent) error
}

// LogPresenter is an ActionPresenter that only logs (used when SMTP is not configured).
type LogPresenter struct{}

func (LogPresenter) Present(_ context.Context, event *domain.BeaconEvent) error {
	slog.Info("action presented",
		"action", event.Action.UUID,
		"beacon_id", event.BeaconID,
		"trigger", event.Trigger.String(),
		"subject", event.Action.Subject,
	)
	return nil
}
