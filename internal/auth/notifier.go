// AngelaMos | 2026
// notifier.go

package auth

import (
	"context"
	"log/slog"
)

// Notifier tells a user about changes to their credentials.
type Notifier interface {
	PasswordResetRequested(ctx context.Context, email, link string) error
	PasswordChanged(ctx context.Context, email string) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PasswordResetRequested(ctx context.Context, email, link string) error {
	n.logger.InfoContext(ctx, "password reset requested", "email", email, "link", link)
	return nil
}

func (n *LogNotifier) PasswordChanged(ctx context.Context, email string) error {
	n.logger.InfoContext(ctx, "password changed", "email", email)
	return nil
}
