package commands

import (
	"context"
	"fmt"
	"moodlefetch/internal/components/restyutil"
	"moodlefetch/internal/components/telemetry"
	"moodlefetch/pkg/moodle"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dumpDir    *string

	config   Config
	tel      telemetry.API
	shutdown func()

	initTelemetry = setupTelemetry
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "moodlefetch.json5", "The config file to read, a .local variant next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enables debug logging.")
	dumpDir = rootCmd.PersistentFlags().String("dump", "", "Writes every http exchange to this directory, ex. <dev_state>/http.")
}

var rootCmd = &cobra.Command{
	Use:   "moodlefetch",
	Short: "moodlefetch is a CLI for logging into a moodle portal and reading grades and courses off of it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(*configPath)
		if err != nil {
			return err
		}
		if *verbose {
			cfg.Verbose = true
		}
		config = cfg

		tel, shutdown, err = initTelemetry(cmd.Context(), cfg)
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the CLI, telemetry is flushed whether or not the
// command failed.
func ExecuteContext(ctx context.Context) error {
	defer func() {
		if shutdown != nil {
			shutdown()
			shutdown = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func newClient() (*moodle.Client, error) {
	opts := moodle.ClientOptions{
		BaseUrl:           config.BaseUrl,
		Telemetry:         tel,
		Timeout:           config.Timeout(),
		RequestsPerSecond: config.RequestsPerSecond,
		CloudflareBypass:  config.CloudflareBypass,
	}
	if *dumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(*dumpDir)
		if err != nil {
			return nil, fmt.Errorf("http dump: %w", err)
		}
		opts.HttpDump = output
	}
	return moodle.NewClient(opts)
}

// authenticatedClient restores the configured session, or logs in with the
// configured credentials when there is none.
func authenticatedClient(ctx context.Context) (*moodle.Client, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	if config.HasSession() {
		err = client.SetSessionData("", config.Session.Sesskey, config.Session.MoodleSession)
		return client, err
	}
	if config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("no session or credentials configured")
	}
	err = client.Login(ctx, "", config.Username, config.Password).Err()
	if err != nil {
		return nil, err
	}
	return client, nil
}
