package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spigell/job-inbox/internal/classifier"
	"github.com/spigell/job-inbox/internal/extractor"
	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/mailbox"
	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type classifyOutput struct {
	Email       emailSummary         `json:"email"`
	Category    tracker.Category     `json:"category"`
	Pattern     string               `json:"pattern,omitempty"`
	Application *tracker.Application `json:"application,omitempty"`
}

type emailSummary struct {
	ID      string `json:"id,omitempty"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date,omitempty"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify [file.eml|-]",
	Short: "Classify a single RFC 822 message and print the extracted record",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		path := "-"
		if len(args) == 1 {
			path = args[0]
		}

		out, err := classifyMessage(path, cmd.InOrStdin())
		if err != nil {
			logger.Fatal("classifying message", zap.Error(err), zap.String("path", path))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logger.Fatal("printing result", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func classifyMessage(path string, stdin io.Reader) (*classifyOutput, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}

	email, err := mailbox.DecodeMessage("", "", r)
	if err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}

	result := classifier.Explain(email)
	out := &classifyOutput{
		Email: emailSummary{
			ID:      email.ID,
			From:    email.From,
			Subject: email.Subject,
			Date:    email.Date,
		},
		Category: result.Category,
		Pattern:  result.Pattern,
	}

	if result.Category != tracker.CategoryUnknown {
		app := extractor.Extract(email, result.Category)
		out.Application = &app
	}

	return out, nil
}
