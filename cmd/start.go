/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/research-assistant/handler"
	"github.com/tieubaoca/research-assistant/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the research assistant HTTP server",
	Long: `Starts the HTTP API: account registration and login, document preview,
research runs (Query, Just Summarize, Challenge Me, Evaluation) and a
websocket endpoint that streams model output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		gin.SetMode(gin.ReleaseMode)
		corsHandler := handler.NewCorsHandler(cfg.CORSOrigins)
		uploadHandler := handler.NewUploadHandler(a.docs, cfg.MaxUploadBytes, log)
		wsService := service.NewWebSocketService(a.research, a.docs, corsHandler.CheckOrigin, log)

		router := handler.NewRouter(handler.Handlers{
			Auth:     handler.NewAuthHandler(a.users, cfg.JWTSecret, cfg.SecureCookie, log),
			Upload:   uploadHandler,
			Document: handler.NewDocumentHandler(uploadHandler, a.docs),
			Research: handler.NewResearchHandler(uploadHandler, a.research),
			Search:   handler.NewSearchHandler(a.search, a.wiki, log),
			Stream:   handler.NewStreamHandler(wsService),
			Cors:     corsHandler,
		}, cfg.JWTSecret, log)

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info(ctx, "starting server", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
