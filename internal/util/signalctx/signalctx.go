package signalctx

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WithSignals возвращает context, который отменяется при получении INT или TERM.
// Полученный сигнал пишется в лог; после отмены подписка на сигналы снимается,
// так что повторный Ctrl-C завершает процесс сразу.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(c)
		select {
		case <-ctx.Done():
		case sig := <-c:
			slog.Warn("signal received, cancelling", "signal", sig.String())
			cancel()
		}
	}()

	return ctx, cancel
}
