package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
)

const handlerTimeout = 10 * time.Second

// WrapWithLogging wraps a command handler with start/finish logging and a
// hard timeout.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		}
		slog.Info("Command started", append(attrs,
			slog.String("guild_id", e.GuildID().String()),
			slog.String("channel_id", e.ChannelID().String()),
		)...)

		return runLogged("Command", attrs, func() error { return h(e) })
	}
}

// WrapComponentWithLogging wraps a component handler the same way.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		attrs := []any{
			slog.String("type", "component"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		}
		slog.Info("Component interaction started", append(attrs,
			slog.String("guild_id", e.GuildID().String()),
			slog.String("channel_id", e.ChannelID().String()),
		)...)

		return runLogged("Component interaction", attrs, func() error { return h(e) })
	}
}

func runLogged(kind string, attrs []any, run func() error) error {
	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- run()
	}()

	select {
	case err := <-done:
		took := time.Since(start)
		attrs = append(attrs, slog.Duration("took", took))
		switch {
		case err != nil:
			slog.Error(kind+" failed", append(attrs,
				slog.Any("error", err),
				slog.String("status", "failed"),
			)...)
		case took > 2*time.Second:
			slog.Warn(kind+" executed slowly", append(attrs,
				slog.String("status", "slow"),
			)...)
		default:
			slog.Info(kind+" completed", append(attrs,
				slog.String("status", "success"),
			)...)
		}
		return err

	case <-time.After(handlerTimeout):
		slog.Error(kind+" timed out", append(attrs,
			slog.String("status", "timeout"),
			slog.Duration("timeout", handlerTimeout),
		)...)
		return fmt.Errorf("%s timed out after %s", kind, handlerTimeout)
	}
}
