package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/personarec/internal/transport/chi"
	"github.com/kailas-cloud/personarec/internal/usecase/ingest"
	"github.com/kailas-cloud/personarec/internal/usecase/recommend"
	venueuc "github.com/kailas-cloud/personarec/internal/usecase/venue"
)

func newServeCmd(env *string) *cobra.Command {
	var bootstrap string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recommendation API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *env, func(ctx context.Context, a *app) error {
				return serve(ctx, a, bootstrap)
			})
		},
	}
	cmd.Flags().StringVar(&bootstrap, "bootstrap", "",
		"JSONL venue file to ingest before serving, for the memory drivers")
	return cmd
}

func serve(ctx context.Context, a *app, bootstrap string) error {
	cfg := a.cfg

	if err := a.index.EnsureNamespace(ctx, cfg.Vector.Namespace); err != nil {
		return fmt.Errorf("prepare vector namespace: %w", err)
	}

	if bootstrap != "" {
		svc, err := a.ingestService("")
		if err != nil {
			return err
		}
		sum, err := runIngestFile(ctx, svc, bootstrap, ingest.AllSteps())
		if err != nil {
			return err
		}
		logSummary(a.logger, sum)
	}

	recommendSvc := recommend.New(a.embed, a.index, a.graph, cfg.Vector.Namespace, recommend.Timeouts{
		Embed:  time.Duration(cfg.Recommend.EmbedTimeoutMS) * time.Millisecond,
		Vector: time.Duration(cfg.Recommend.VectorTimeoutMS) * time.Millisecond,
		Graph:  time.Duration(cfg.Recommend.GraphTimeoutMS) * time.Millisecond,
	}, a.logger)
	venueSvc := venueuc.New(a.graph, a.logger)

	server := chiTransport.NewServer(recommendSvc, venueSvc, a.health, a.logger)
	router := chiTransport.NewRouter(server, cfg.Auth.APIKeys, a.logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout(),
		WriteTimeout: cfg.HTTP.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
