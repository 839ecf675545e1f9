package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/bnema/meeting-assistant-cli/internal/adapters/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API, session endpoints, websocket and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.config.HTTP
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			server, err := httpapi.NewServer(app.conversation, app.logger, &httpapi.Config{
				Host:           cfg.Host,
				Port:           cfg.Port,
				TurnTimeout:    cfg.TurnTimeout,
				AllowedOrigins: cfg.AllowedOrigins,
			})
			if err != nil {
				return fmt.Errorf("create http server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sweeper, err := startSweeper(ctx, app)
			if err != nil {
				return err
			}
			if sweeper != nil {
				defer func() { <-sweeper.Stop().Done() }()
			}
			watchLogLevel(app)

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", server.Addr())
			return serveUntilDone(ctx, app, server)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides http.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides http.port)")

	return cmd
}

func serveUntilDone(ctx context.Context, app *app, server *httpapi.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn(shutdownCtx, "http shutdown incomplete", zap.Error(err))
	}

	return <-errCh
}

// startSweeper purges idle sessions on sweeper.schedule. It returns nil when no schedule is set.
func startSweeper(ctx context.Context, app *app) (*cron.Cron, error) {
	schedule := app.config.Sweeper.Schedule
	if schedule == "" {
		return nil, nil
	}

	sweeper := cron.New()
	_, err := sweeper.AddFunc(schedule, func() {
		purged, err := app.conversation.PurgeIdleSessions(ctx, app.config.Sweeper.IdleAfter)
		if err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Warn(ctx, "idle session sweep failed", zap.Int("purged", len(purged)), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule idle session sweeper: %w", err)
	}
	sweeper.Start()
	app.logger.Info(ctx, "idle session sweeper started",
		zap.String("schedule", schedule),
		zap.Duration("idle_after", app.config.Sweeper.IdleAfter),
	)

	return sweeper, nil
}

// watchLogLevel applies log.level edits in the config file without a restart.
func watchLogLevel(app *app) {
	if app.viper.ConfigFileUsed() == "" {
		return
	}

	app.viper.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		level := app.viper.GetString("log.level")
		if err := app.logger.SetLevel(level); err != nil {
			app.logger.Warn(context.Background(), "ignoring invalid log level from config", zap.String("level", level), zap.Error(err))
			return
		}
		app.logger.Info(context.Background(), "log level changed", zap.String("level", level))
	})
	app.viper.WatchConfig()
}
