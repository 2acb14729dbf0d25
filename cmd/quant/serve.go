package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"quant-systemv1/internal/gateway"
	"quant-systemv1/internal/notification"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream published selections over WebSocket",
		Long:  "Follows the Redis selection channels and serves /ws plus /api/selections/{strategy}. Requires REDIS_ADDR.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if a.redis == nil {
				return errors.New("serve needs a reachable Redis (set REDIS_ADDR)")
			}
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.GatewayAddr
			}

			ctx := cmd.Context()
			hub := gateway.NewHub(a.redis.Redis())
			go hub.Run(ctx)

			srv := &http.Server{
				Addr:              addr,
				Handler:           gateway.NewRouter(hub, a.redis),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				slog.Info("gateway listening", "addr", addr)
				if err := srv.ListenAndServe(); err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default GATEWAY_ADDR)")
	return cmd
}

// notifier builds the configured alert backends; the log is always one.
func (a *app) notifier() notification.Notifier {
	n := notification.Multi{notification.NewLogNotifier()}
	if a.cfg.NotifyWebhookURL != "" {
		n = append(n, notification.NewWebhookNotifier(a.cfg.NotifyWebhookURL))
	}
	if a.cfg.TelegramBotToken != "" && a.cfg.TelegramChatID != "" {
		n = append(n, notification.NewTelegramNotifier(a.cfg.TelegramBotToken, a.cfg.TelegramChatID))
	}
	return n
}
