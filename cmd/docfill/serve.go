package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docfill/internal/api"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP fill API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port, _ = cmd.Flags().GetString("port")
			}
			if err := a.cfg.ValidateServe(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("port", a.cfg.Port, "listen port")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	log := a.log
	cfg := a.cfg

	rt, err := a.setup()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, rt.filler, rt.profile.Aliases, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	var hist api.HistoryReader
	if rt.history != nil {
		hist = rt.history
	}
	srv := api.NewServer(orch, hist, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docfill", "port", cfg.Port, "workers", cfg.WorkerCount, "job_dir", cfg.JobDir)
	err = httpServer.ListenAndServe()
	orch.Stop()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
