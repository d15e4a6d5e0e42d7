package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbolis/event-registration/app"
	"github.com/mbolis/event-registration/config"
	"github.com/mbolis/event-registration/database"
	"github.com/mbolis/event-registration/httpx"
	"github.com/mbolis/event-registration/log"
	"github.com/mbolis/event-registration/metrics"
	"github.com/mbolis/event-registration/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	err = httpx.EnsureAdmin(ctx, db, cfg)
	if err != nil {
		log.Fatal("main.admin:", err)
	}

	bearerServer := httpx.NewBearerServer(db, cfg)
	app := app.New(db, bearerServer, cfg, metrics.New(prometheus.DefaultRegisterer))

	handler := routes.Wire(app)

	err = runServer(ctx, cfg, handler)
	if err != nil {
		log.Fatal("main.server:", err)
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	log.Info("Listening on " + cfg.Url())
	return serve(ctx, ln, handler)
}

// serve handles requests on ln until ctx is done, then waits for the
// requests in flight before returning.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	err := srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdown
}
