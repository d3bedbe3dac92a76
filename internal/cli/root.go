// Package cli implements airctl, the command-line companion of the dashboard.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/airapi"
	"github.com/couchcryptid/campus-air-dashboard/internal/config"
	"github.com/couchcryptid/campus-air-dashboard/internal/feed"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
	"github.com/couchcryptid/campus-air-dashboard/internal/simulate"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	verbose    bool
	jsonOut    bool
	apiURL     string
	noSimulate bool

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRootCmd builds the airctl command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "airctl",
		Short: "Campus air-quality command-line client",
		Long: `airctl queries the campus air-quality API, the DHT spreadsheet export and the
snapshot stream from the terminal. It reads the same environment (and .env file)
as the dashboard service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of a table")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Air-quality API base URL (overrides API_BASE_URL)")
	root.PersistentFlags().BoolVar(&a.noSimulate, "no-simulate", false, "Do not fall back to simulated data when the API fails")

	root.AddCommand(
		newLatestCmd(a),
		newSeriesCmd(a),
		newDHTCmd(a),
		newSimulateCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute runs airctl against the process stdio.
func Execute() error {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return err
	}
	return nil
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = a.apiURL
	}
	if a.noSimulate {
		cfg.SimulateOnFailure = false
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	a.metrics = observability.NewLocalMetrics()
	return nil
}

func (a *app) feed() *feed.Feed {
	api := airapi.NewClient(a.cfg.APIBaseURL, a.cfg.APITimeout, a.metrics, a.logger)
	opts := feed.Options{
		Simulate:  a.cfg.SimulateOnFailure,
		LatestTTL: a.cfg.LatestTTL,
		SeriesTTL: a.cfg.SeriesTTL,
		CacheSize: a.cfg.CacheSize,
	}
	return feed.New(api, simulate.New(), opts, a.metrics, a.logger)
}

func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
