package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/dashboard"
	"github.com/spf13/cobra"
)

func newSeriesCmd(a *app) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "series <node_id>",
		Short: "Show the PM2.5 trend of a node",
		Long: `Fetch the PM2.5 series of one node over the last --minutes minutes.

Examples:
  airctl series NODE-A
  airctl series NODE-B --minutes 60 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes < 0 {
				return errors.New("--minutes must be positive")
			}
			if minutes == 0 {
				minutes = a.cfg.SeriesMinutes
			}
			ctx, cancel := commandContext(cmd, a.cfg.APITimeout+time.Second)
			defer cancel()

			res := a.feed().Series(ctx, args[0], minutes)
			tr := dashboard.BuildTrend(args[0], minutes, res.Origin, res.Points, a.cfg.PM25AlertThreshold)

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, tr)
			}

			fmt.Fprintf(out, "node: %s, last %d min, source: %s, threshold: %g\n", tr.NodeID, tr.Minutes, tr.Origin, tr.Threshold)
			if tr.Message != "" {
				fmt.Fprintln(out, tr.Message)
				return nil
			}
			tw := newTable(out, "TIME", "PM2.5", "")
			for _, p := range tr.Points {
				mark := ""
				if p.PM25 != nil && *p.PM25 > tr.Threshold {
					mark = "above threshold"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.TS.Local().Format("2006-01-02 15:04"), optFloat(p.PM25), mark)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "Window length in minutes (default SERIES_MINUTES)")
	return cmd
}
