package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/job-inbox/internal/filtering"
	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/mailbox"
	"github.com/spigell/job-inbox/internal/store"
	"github.com/spigell/job-inbox/internal/syncer"
	"github.com/spigell/job-inbox/internal/tracker"
	"github.com/spigell/job-inbox/internal/utils"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes                 = "Yes"
	PromptNo                  = "No"
	PromptReportByCompany     = "Report by company"
	PromptRecordsToFile       = "Dump records to file"
	PromptAppendToExcludeFile = "Append all threads to exclude file"
	defaultInterval           = 15 * time.Minute
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch new emails, classify them and update the tracker",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before storing records")
	runCmd.Flags().Bool("dry-run", false, "classify and extract, but do not store or tag anything")
	runCmd.Flags().Bool("reprocess", false, "do not skip emails that were already processed")
	runCmd.Flags().StringP("exclude-file", "e", "", "special file with threads to exclude. Default is unset.")
	runCmd.Flags().Bool("watch", false, "keep syncing every interval until interrupted (implies --auto-approve)")
	runCmd.Flags().Duration("interval", 0, "time between syncs in watch mode (default 15m)")

	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("sync.interval", runCmd.Flags().Lookup("interval"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
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

	logger.Info("starting the job-inbox", zap.String("version", version))

	src, err := mailbox.Open(ctx, config.Mailbox, logger)
	if err != nil {
		logger.Fatal("opening the mailbox", zap.Error(err))
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	st, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal(
			"opening the store",
			zap.Error(err),
			zap.String("hint", "set JOB_INBOX_DATABASE_URL_FILE environment variable or the 'store.dsn-file' key for postgres"),
		)
	}
	defer st.Close()

	reprocess, _ := cmd.Flags().GetBool("reprocess")
	steps := filtering.Default(reprocess)
	if len(config.Senders) == 0 {
		filtering.DisableByName(steps, "senders", "no senders configured")
	}

	pretty, _ := json.MarshalIndent(filtering.Describe(steps), "", "  ")
	logger.Debug(fmt.Sprintf("filters: \n %s", pretty))

	s := syncer.New(src, st, steps, &filtering.Config{
		Senders:     config.Senders,
		ExcludeFile: config.ExcludeFile,
	}, logger)

	opts := syncer.Options{
		Lookback: config.Sync.Lookback,
		Limit:    config.Sync.Limit,
		Mark:     config.Sync.Mark,
	}
	if opts.Lookback == 0 {
		opts.Lookback = syncer.DefaultLookback
	}
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	watch, _ := cmd.Flags().GetBool("watch")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	autoApprove = autoApprove || watch

	interval := config.Sync.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	for {
		err := syncOnce(ctx, s, opts, autoApprove, config.ExcludeFile, logger)
		switch {
		case errors.Is(err, errExit):
			return
		case err != nil && !watch:
			logger.Fatal("sync failed", zap.Error(err))
		case err != nil:
			logger.Error("sync failed, retrying on next tick", zap.Error(err))
		}

		if !watch {
			return
		}

		if err := utils.WaitFor(ctx, interval); err != nil {
			logger.Info("exiting", zap.String("reason", err.Error()))
			return
		}
	}
}

func syncOnce(ctx context.Context, s *syncer.Syncer, opts syncer.Options, autoApprove bool, excludeFile string, logger *zap.Logger) error {
	batch, err := s.Plan(ctx, opts)
	if err != nil {
		return err
	}

	if batch.Applications.Len() == 0 {
		logger.Info("no job related emails found", zap.Int("fetched", batch.Fetched))
		_, err := s.Commit(ctx, batch, opts)
		return err
	}

	items := []string{PromptYes, PromptNo, PromptReportByCompany, PromptRecordsToFile}
	if excludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}
	prompt := promptui.Select{
		Label: "Procced?",
		Items: items,
	}

	action := PromptYes
	for {
		if !autoApprove {
			_, action, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
		}

		logger.Info("current list of applications", zap.Int("count", batch.Applications.Len()))

		done, err := handleAction(ctx, action, s, batch, opts, excludeFile, logger)
		if err != nil || done {
			return err
		}
	}
}

func handleAction(ctx context.Context, action string, s *syncer.Syncer, batch *syncer.Batch, opts syncer.Options, excludeFile string, logger *zap.Logger) (bool, error) {
	switch action {
	case PromptYes:
		result, err := s.Commit(ctx, batch, opts)
		if err != nil {
			return true, err
		}
		logger.Info("sync finished",
			zap.Int("fetched", result.Fetched),
			zap.Int("stored", result.Stored),
			zap.Int("skipped", result.Skipped),
			zap.Any("by category", result.ByCategory),
			zap.Bool("dry run", result.DryRun),
		)
		return true, nil
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return true, errExit
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(batch.Applications.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("applications count", batch.Applications.Len()))
		return false, nil
	case PromptRecordsToFile:
		filename, err := batch.Applications.DumpToTmpFile()
		if err != nil {
			return true, fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return false, nil
	case PromptAppendToExcludeFile:
		return false, appendToExcludeFile(batch, excludeFile, logger)
	default:
		return true, fmt.Errorf("invalid action: %s", action)
	}
}

// appendToExcludeFile writes every planned thread to the exclude file and drops them from the batch.
func appendToExcludeFile(batch *syncer.Batch, excludeFile string, logger *zap.Logger) error {
	excluded, err := tracker.GetExcludedThreadsFromFile(excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(batch.Applications.ToExcluded())

	if err := excluded.ToFile(excludeFile); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", excludeFile))

	for _, app := range batch.Applications.Items {
		batch.Skipped = append(batch.Skipped, app.EmailID)
	}
	batch.Applications = &tracker.Applications{}

	return nil
}
