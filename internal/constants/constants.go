// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// Version is the version of the application.
	Version = "Dev"

	// CmdName is the name of the command line tool.
	CmdName = "shift-insights"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "shift-insights"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultPortalBaseURL is the base URL of the labor reporting portal.
	DefaultPortalBaseURL = "https://fclm-portal.example.com/reports/"

	// DefaultCookiePath is the default location of the Netscape-format session cookie file,
	// relative to the user's home directory.
	DefaultCookiePath = ".midway/cookie"

	// DefaultFetchTimeout bounds a single portal request so a hung call advances
	// the fallback machine instead of blocking a worker.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultWorkers is the size of the per-process pipeline worker pool.
	DefaultWorkers = 4

	// DefaultCoverageTolerance is the factor by which a returned table may exceed
	// the requested window before reconciliation kicks in. Empirically chosen;
	// kept configurable rather than assumed optimal.
	DefaultCoverageTolerance = 1.25

	// DefaultWidenFactor is the symmetric padding multiple applied to the
	// requested duration for the widened fetch candidate.
	DefaultWidenFactor = 2

	// DefaultWidenCeiling caps the widened candidate window.
	DefaultWidenCeiling = 24 * time.Hour

	// DefaultMaximalSpan is the last-resort candidate window span before
	// falling back to the historical source.
	DefaultMaximalSpan = 48 * time.Hour

	// DefaultWeeksBack is how many weeks of history the alternate source
	// averages over.
	DefaultWeeksBack = 4

	// SchemaFileName is the base name of the optional process catalog override file.
	SchemaFileName = "processes.toml"

	// SitesFileName is the base name of the optional site profiles file.
	SitesFileName = "sites.ini"

	// ReportExtension is the default extension for the run report files.
	ReportExtension = ".json"
)

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultConfigPath is the default path to the configuration directory.
func GetDefaultConfigPath(opts ...option) string {
	o := options{baseDir: os.UserConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// GetDefaultCookieFile is the default path to the portal session cookie file.
func GetDefaultCookieFile(opts ...option) string {
	o := options{baseDir: os.UserHomeDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultCookiePath)
}

// getBaseDir is a helper function to handle the case where the baseDir function
// returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		slog.Warn("Could not determine base directory", "error", err)
		return ""
	}
	return dir
}
