package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkowalczk/jobscout/internal/sched"
	"github.com/mkowalczk/jobscout/internal/server"
)

type ServeCmd struct {
	Port        int    `help:"HTTP listen port (overrides config)."`
	NoScheduler bool   `help:"Disable the background scheduler."`
	Proxies     string `help:"Comma-separated proxy URLs." env:"JOBSCOUT_PROXIES"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	application, err := buildApp(ctx, s.Proxies)
	if err != nil {
		return err
	}

	port := ctx.Config.Port
	if s.Port > 0 {
		port = s.Port
	}

	var scheduler *sched.Scheduler
	if !s.NoScheduler {
		scheduler = sched.New(application.searches, application.orch, application.history, application.mailer, ctx.Logger)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	api := server.New(application.orch, application.searches, application.runner, application.tracker, application.usage, ctx.Logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		ctx.Logger.Info().Int("port", port).Msg("http server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		ctx.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
