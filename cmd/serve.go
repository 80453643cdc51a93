package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/job-inbox/internal/api"
	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/mcpserver"
	"github.com/spigell/job-inbox/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	TransportHTTP = "http"
	TransportMCP  = "mcp"
	defaultListen = "127.0.0.1:8080"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose classification and extraction over HTTP or MCP (stdio)",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("transport", TransportHTTP, "http or mcp")
	serveCmd.Flags().String("listen", defaultListen, "listen address for the http transport")

	viper.BindPFlag("serve.transport", serveCmd.Flags().Lookup("transport"))
	viper.BindPFlag("serve.listen", serveCmd.Flags().Lookup("listen"))
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

	var st store.Store
	if viper.IsSet("store") {
		st, err = store.Open(ctx, config.Store)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer st.Close()
	} else {
		logger.Info("no store configured, application listing is disabled")
	}

	transport := viper.GetString("serve.transport")
	logger.Info("starting the job-inbox server", zap.String("version", version), zap.String("transport", transport))

	switch transport {
	case TransportHTTP:
		if !viper.GetBool("debug") {
			gin.SetMode(gin.ReleaseMode)
		}

		opts := api.Options{Logger: logger}
		if st != nil {
			opts.Store = st
		}

		if err := api.Serve(ctx, viper.GetString("serve.listen"), api.NewRouter(opts), logger); err != nil {
			logger.Fatal("serving http", zap.Error(err))
		}
	case TransportMCP:
		opts := mcpserver.Options{Name: app, Version: version, Logger: logger}
		if st != nil {
			opts.Store = st
		}

		if err := mcpserver.Serve(mcpserver.New(opts)); err != nil {
			logger.Fatal("serving mcp", zap.Error(err))
		}
	default:
		logger.Fatal("unknown transport", zap.String("transport", transport))
	}
}
