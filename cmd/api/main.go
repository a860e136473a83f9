// Command api runs the Amar Pathagar HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/di"
	"github.com/amarpathagar/pathagar-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()
	log.Info("Signal received, shutting down")

	// Services stop in reverse dependency order: HTTP first, stores last.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
	log.Info("Shelves closed. Goodbye.")
}
