package delivery

import (
	"context"
	"log/slog"
)

// LogSender пишет код в лог вместо отправки письма. Только для локальной разработки
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender создает LogSender
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendCode логирует письмо с кодом
func (s *LogSender) SendCode(ctx context.Context, to, code string) error {
	msg := NewCodeMessage(to, code)
	s.logger.WarnContext(ctx, "otp delivery is in console mode, code is not emailed",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("code", code),
	)
	return nil
}
