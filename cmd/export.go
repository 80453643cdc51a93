package cmd

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/spigell/job-inbox/internal/exporter"
	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored applications as csv, json or yaml",
	Run: func(cmd *cobra.Command, _ []string) {
		export(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("format", "f", exporter.FormatCSV, "output format: csv, json or yaml")
	exportCmd.Flags().StringP("output", "o", "", "output file (default is stdout)")
}

func export(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	apps, err := st.Applications(ctx)
	if err != nil {
		logger.Fatal("listing applications", zap.Error(err))
	}

	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			logger.Fatal("creating output file", zap.Error(err))
		}
		defer file.Close()
		w = file
	}

	if err := exporter.Export(w, apps, format); err != nil {
		logger.Fatal("exporting applications", zap.Error(err), zap.Strings("supported", exporter.Formats()))
	}

	if output != "" {
		logger.Info("applications exported", zap.Int("count", len(apps)), zap.String("filename", output))
	}
}
