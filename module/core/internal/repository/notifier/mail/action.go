package mail

import (
	"context"
	"fmt"

	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/mail"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/notifier"
)

var _ notifier.ActionPresenter = (*ActionPresenter)(nil)

type ActionPresenter struct {
	host       string
	port       int
	user       string
	password   string
	recipients []string
}

func NewActionPresenter(host string, port int, user, password string, recipients []string) *ActionPresenter {
	return &ActionPresenter{
		host:       host,
		port:       port,
		user:       user,
		password:   password,
		recipients: recipients,
	}
}

func (p *ActionPresenter) Present(ctx context.Context, event *domain.BeaconEvent) error {
	if len(p.recipients) == 0 {
		return nil
	}
	subject, body := Render(event)

	// Fresh mail service per event: notify accumulates receivers across
	// AddReceivers calls.
	mailSvc := mail.New(p.user, fmt.Sprintf("%s:%d", p.host, p.port))
	mailSvc.AuthenticateSMTP("", p.user, p.password, p.host)
	mailSvc.AddReceivers(p.recipients...)

	n := notify.New()
	n.UseServices(mailSvc)

	if err := n.Send(ctx, subject, body); err != nil {
		return fmt.Errorf("send action mail: %w", err)
	}
	return nil
}

// Render builds the mail subject and body for a presented action.
func Render(event *domain.BeaconEvent) (string, string) {
	subject := event.Action.Subject
	if subject == "" {
		subject = fmt.Sprintf("[Proximity] %s at %s", event.Trigger, event.BeaconID)
	}
	body := event.Action.Body
	if event.Action.URL != "" {
		if body != "" {
			body += "\n\n"
		}
		body += event.Action.URL
	}
	body += fmt.Sprintf("\n\nAction: %s\nTime: %s",
		event.Action.UUID,
		event.PresentationTime.UTC().Format("2006-01-02 15:04:05 UTC"),
	)
	return subject, body
}
