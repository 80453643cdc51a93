package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spigell/job-inbox/internal/mailbox"
	"github.com/spigell/job-inbox/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "job-inbox"
)

type Config struct {
	Mailbox     *mailbox.Config `mapstructure:"mailbox"`
	Store       *store.Config   `mapstructure:"store"`
	Sync        *SyncConfig     `mapstructure:"sync"`
	Senders     []string        `mapstructure:"senders"`
	ExcludeFile string          `mapstructure:"exclude-file"`
}

type SyncConfig struct {
	// Lookback applies to the first run only. Later runs continue from the stored watermark.
	Lookback time.Duration `mapstructure:"lookback"`
	Limit    int           `mapstructure:"limit"`
	Mark     bool          `mapstructure:"mark"`
	Interval time.Duration `mapstructure:"interval"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-inbox reads job application emails and keeps an application tracker up to date",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"mailbox.imap.password-file": "JOB_INBOX_IMAP_PASSWORD_FILE",
		"mailbox.gmail.token-file":   "JOB_INBOX_GMAIL_TOKEN_FILE",
		"store.dsn-file":             "JOB_INBOX_DATABASE_URL_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-inbox.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only commands touching a mailbox or the store need the config file.
	if runCmd.CalledAs() == "" && exportCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// serve can classify without a store
		if serveCmd.CalledAs() != "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Sync == nil {
		config.Sync = &SyncConfig{}
	}
	if config.Store == nil {
		config.Store = &store.Config{}
	}

	return config, nil
}
