package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Returns a context that is cancelled the first time Ctrl+C is pressed, a
// second Ctrl+C exits immediately.
func SignalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Warn("interrupted, stopping after the current request (press again to exit now)")
		cancel()
		<-sigs
		os.Exit(130)
	}()

	return ctx
}

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
