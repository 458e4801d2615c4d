package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// Level classifies a user-facing notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier delivers short operational notices (quote saved, payment failed).
// Callers receive it as a dependency; there is no package-level instance.
type Notifier interface {
	Notify(ctx context.Context, message string, level Level) error
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, message string, level Level) error {
	log := n.logger.WithContext(ctx)
	message = ScrubPII(message)
	switch level {
	case LevelError:
		log.Error(message, "notice_level", string(level))
	case LevelWarning:
		log.Warn(message, "notice_level", string(level))
	default:
		log.Info(message, "notice_level", string(level))
	}
	return nil
}

// EmailNotifier mails warnings and errors to the studio inbox. Info and
// success notices are dropped to keep the inbox quiet.
type EmailNotifier struct {
	sender EmailSender
	to     string
}

func NewEmailNotifier(sender EmailSender, to string) *EmailNotifier {
	if sender == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	return &EmailNotifier{sender: sender, to: strings.TrimSpace(to)}
}

func (n *EmailNotifier) Notify(ctx context.Context, message string, level Level) error {
	if level != LevelWarning && level != LevelError {
		return nil
	}
	return n.sender.Send(ctx, EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(string(level)), truncate(message, 80)),
		Body:    message,
	})
}

// MultiNotifier fans a notice out to every configured notifier.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, message string, level Level) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, message, level); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
