package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/api"
	"github.com/spigell/cv-tailor/internal/logger"
	"github.com/spigell/cv-tailor/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

var serveFlags = map[string]string{
	"server.listen": "listen",
	"output.dir":    "output",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scoring, extraction and tailoring over HTTP",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, serveFlags)
	},
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8080", "address to listen on")
	serveCmd.Flags().StringP("output", "o", "", "directory for the generated files")
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-tailor server", zap.String("version", version))

	// scoring and extraction still work without a model
	writer, err := newWriter(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("tailoring is disabled", zap.Error(err))
	}

	store, location, err := newStore(ctx, config.Output)
	if err != nil {
		logger.Fatal("creating an output store", zap.Error(err))
	}
	logger.Info("saving results", zap.String("location", location))

	tracker, err := newTracker(ctx, config.Tracking, logger)
	if err != nil {
		logger.Fatal("creating a tracker", zap.Error(err))
	}

	hh, err := newHeadhunter(config.Headhunter, logger)
	if err != nil {
		logger.Fatal("creating a headhunter client", zap.Error(err))
	}

	server := api.New(config.Server.Config, pipeline.Deps{
		Writer:  writer,
		Store:   store,
		Tracker: tracker,
		Logger:  logger,
	}, hh)

	errs := make(chan error, 1)
	go func() {
		errs <- server.Listen(config.Server.Listen)
	}()

	select {
	case err := <-errs:
		logger.Error("http server stopped", zap.Error(err))
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := tracker.Close(shutdownCtx); err != nil {
		logger.Warn("closing the tracker", zap.Error(err))
	}

	logger.Info("server exited")
}
