// Package commands contains the commands of the shift-insights command line tool.
package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/cli"
	"github.com/shiftmetrics/shift-insights/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool

	Pull pullConfig
}

// pullConfig holds the settings of one pull run.
type pullConfig struct {
	Site  string
	Start time.Time
	End   time.Time

	BaseURL    string
	CookieFile string
	SchemaFile string
	SitesFile  string
	ReportDir  string

	Workers      int
	FetchTimeout time.Duration
	WeeksBack    int

	Tolerance    float64
	WidenFactor  int
	WidenCeiling time.Duration
	MaximalSpan  time.Duration

	Critical []string

	MetricsPort int

	// Raw window boundaries from flags, parsed against the site timezone.
	startRaw string
	endRaw   string
}

// New creates a new App instance with default values.
func New() (*App, error) {
	a := App{}

	a.cmd = &cobra.Command{
		Use:           constants.CmdName + " [COMMAND]",
		Short:         "Pull and normalize warehouse shift metrics",
		Long: "Pulls per-process labor and throughput reports from the reporting portal, " +
			"reconciles them against the requested time window, and recomputes rates " +
			"from the reconciled aggregates.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config, viper.DecodeHook(cli.WindowTimeHook())); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs)
			return nil
		},
	}
	a.viper = viper.New()

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	installPullCmd(&a)
	installProcessesCmd(&a)
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "emit logs in JSON format")

	cmd.PersistentFlags().StringVar(&app.config.Pull.SchemaFile, "schema",
		filepath.Join(constants.GetDefaultConfigPath(), constants.SchemaFileName),
		"path to the process catalog override file")
	cmd.PersistentFlags().StringVar(&app.config.Pull.SitesFile, "sites",
		filepath.Join(constants.GetDefaultConfigPath(), constants.SitesFileName),
		"path to the site profiles file")

	if err := cmd.MarkPersistentFlagFilename("schema"); err != nil {
		slog.Warn("Failed to mark schema flag as filename", "error", err)
	}
	if err := cmd.MarkPersistentFlagFilename("sites"); err != nil {
		slog.Warn("Failed to mark sites flag as filename", "error", err)
	}
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}
