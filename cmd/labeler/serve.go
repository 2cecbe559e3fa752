package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/FrenchMajesty/comment-labeler/internal/metrics"
	"github.com/FrenchMajesty/comment-labeler/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the labeling API over HTTP",
	Long: `Starts an HTTP server with:
  POST /v1/label          multipart upload (file, api_key, prompt, sheet) -> CSV
  GET  /v1/prompt/default the configured instruction template
  GET  /healthz           liveness
  GET  /metrics           Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			appConfig.Server.Addr = serveAddr
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Options{
			Config:   appConfig,
			Logger:   logger,
			Recorder: metrics.NewRecorder(),
		})
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}
