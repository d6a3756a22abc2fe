package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shiftmetrics/shift-insights/internal/cli"
	"github.com/shiftmetrics/shift-insights/internal/constants"
	"github.com/shiftmetrics/shift-insights/internal/portal"
	"github.com/shiftmetrics/shift-insights/internal/puller"
	"github.com/shiftmetrics/shift-insights/internal/reconcile"
	"github.com/shiftmetrics/shift-insights/internal/report"
	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/sites"
	"github.com/shiftmetrics/shift-insights/internal/window"
	"github.com/spf13/cobra"
)

func installPullCmd(app *App) {
	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull and reconcile process metrics for one time window",
		Long: "Pulls the per-process reports for the requested window, walks the fetch " +
			"fallback ladder where the portal misbehaves, and writes a normalized run report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running pull command", "site", app.config.Pull.Site)
			return app.pullRun()
		},
	}

	cfg := &app.config.Pull

	pullCmd.Flags().StringVarP(&cfg.Site, "site", "s", "", "warehouse site identifier, e.g. XYZ1")
	pullCmd.Flags().StringVar(&cfg.startRaw, "start", "", "window start, e.g. \"2024-03-05 06:00\" (site local time)")
	pullCmd.Flags().StringVar(&cfg.endRaw, "end", "", "window end, e.g. \"2024-03-05 18:00\" (site local time)")

	pullCmd.Flags().StringVar(&cfg.BaseURL, "base-url", "", "portal base URL, overriding the site profile")
	pullCmd.Flags().StringVar(&cfg.CookieFile, "cookie-file", constants.GetDefaultCookieFile(), "path to the portal session cookie file")
	pullCmd.Flags().StringVar(&cfg.ReportDir, "report-dir", "reports", "directory to write run reports to")

	pullCmd.Flags().IntVar(&cfg.Workers, "workers", constants.DefaultWorkers, "how many processes to pull concurrently")
	pullCmd.Flags().DurationVar(&cfg.FetchTimeout, "fetch-timeout", constants.DefaultFetchTimeout, "timeout for a single portal fetch")
	pullCmd.Flags().IntVar(&cfg.WeeksBack, "weeks-back", constants.DefaultWeeksBack, "weeks of history for the averaging fallback, 0 to disable")

	pullCmd.Flags().Float64Var(&cfg.Tolerance, "tolerance", constants.DefaultCoverageTolerance, "how far returned hours may exceed the requested window before reconciliation")
	pullCmd.Flags().IntVar(&cfg.WidenFactor, "widen-factor", constants.DefaultWidenFactor, "window widening multiple for the second fetch attempt")
	pullCmd.Flags().DurationVar(&cfg.WidenCeiling, "widen-ceiling", constants.DefaultWidenCeiling, "cap on the widened window span")
	pullCmd.Flags().DurationVar(&cfg.MaximalSpan, "maximal-span", constants.DefaultMaximalSpan, "span of the last-resort fetch window")

	pullCmd.Flags().StringSliceVar(&cfg.Critical, "critical", nil, "processes whose failure fails the whole run")

	pullCmd.Flags().IntVar(&cfg.MetricsPort, "metrics-port", 0, "serve Prometheus metrics on this port while pulling, 0 to disable")

	if err := pullCmd.MarkFlagRequired("site"); err != nil {
		slog.Error("Failed to mark site flag as required", "error", err)
	}
	if err := pullCmd.MarkFlagFilename("cookie-file"); err != nil {
		slog.Warn("Failed to mark cookie-file flag as filename", "error", err)
	}

	app.cmd.AddCommand(pullCmd)
}

// pullRun runs the pull command.
func (a *App) pullRun() error {
	cfg := a.config.Pull

	profiles, err := sites.Load(cfg.SitesFile)
	if err != nil {
		return err
	}
	profile := profiles.Get(cfg.Site)
	loc, err := profile.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone for site %s: %v", cfg.Site, err)
	}

	win, err := a.resolveWindow(loc)
	if err != nil {
		return err
	}

	catalog, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		return err
	}
	catalog.MarkCritical(cfg.Critical...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = profile.BaseURL
	}
	client, err := portal.New(baseURL,
		portal.WithCookieFile(cfg.CookieFile),
		portal.WithTimeout(cfg.FetchTimeout),
	)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if cfg.MetricsPort > 0 {
		defer a.serveMetrics(reg, cfg.MetricsPort)()
	}

	p, err := puller.New(client, catalog, reg,
		puller.WithWorkers(cfg.Workers),
		puller.WithFetchTimeout(cfg.FetchTimeout),
		puller.WithWeeksBack(cfg.WeeksBack),
		puller.WithSelector(window.NewSelector(
			window.WithWidenFactor(cfg.WidenFactor),
			window.WithWidenCeiling(cfg.WidenCeiling),
			window.WithMaximalSpan(cfg.MaximalSpan),
		)),
		puller.WithEngine(reconcile.New(reconcile.WithTolerance(cfg.Tolerance))),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, runErr := p.Run(ctx, cfg.Site, win)
	if results == nil {
		return runErr
	}

	path, err := report.New(cfg.Site, win, results, time.Since(start)).Write(cfg.ReportDir)
	if err != nil {
		return err
	}
	fmt.Println(path)

	return runErr
}

// resolveWindow merges flag and configuration window boundaries, interpreting
// wall clock times in the site's timezone.
func (a *App) resolveWindow(loc *time.Location) (window.Window, error) {
	cfg := &a.config.Pull

	start, end := cfg.Start, cfg.End
	var err error
	if cfg.startRaw != "" {
		if start, err = cli.ParseShiftTime(cfg.startRaw); err != nil {
			a.cmd.SilenceUsage = false
			return window.Window{}, err
		}
	}
	if cfg.endRaw != "" {
		if end, err = cli.ParseShiftTime(cfg.endRaw); err != nil {
			a.cmd.SilenceUsage = false
			return window.Window{}, err
		}
	}
	if start.IsZero() || end.IsZero() {
		a.cmd.SilenceUsage = false
		return window.Window{}, errors.New("both a window start and end are required, via flags or the configuration file")
	}

	return window.New(siteTime(start, loc), siteTime(end, loc))
}

// siteTime reinterprets a zone-less wall clock time in the site's timezone.
func siteTime(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// serveMetrics exposes reg on /metrics until the returned stop function is
// called.
func (a *App) serveMetrics(reg *prometheus.Registry, port int) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		slog.Info("Serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics endpoint failed", "error", err)
		}
	}()

	return func() {
		if err := srv.Close(); err != nil {
			slog.Warn("Failed to close metrics endpoint", "error", err)
		}
	}
}
