package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender records messages instead of delivering them. It is used when no
// email function or broker is configured.
type LogSender struct {
	log *zerolog.Logger
}

func NewLogSender(log *zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info().
		Str("to", msg.To).
		Str("event", string(msg.Event)).
		Str("subject", msg.Subject).
		Msg("notification delivery skipped")
	return nil
}
