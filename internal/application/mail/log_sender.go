package mail

import (
	"context"
	"log/slog"
)

// LogSender writes outgoing mail to the logger instead of delivering it.
// Selected with MAIL_TRANSPORT=log for local development.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "mail not delivered (log transport)", "to", to, "subject", subject, "body", body)
	return nil
}
