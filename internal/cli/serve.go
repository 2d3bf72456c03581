package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"project-management-api/internal/attachment"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/logging"
	"project-management-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Migrate the database and start the HTTP server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

// bootstrap loads the config and builds the logger every command shares.
func bootstrap(opts *RootOptions) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, zapLogger, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapLogger.Sugar()

	db, err := database.InitDB(database.OptionsFromConfig(cfg.Database))
	if err != nil {
		return err
	}
	blobs, err := attachment.NewFileStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRoutes(routes.NewDeps(zapLogger, cfg, db, blobs))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("Starting server", "port", cfg.Port, "driver", cfg.Database.Driver, "uploadDir", cfg.UploadDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("the server was forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
