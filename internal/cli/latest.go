package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/dashboard"
	"github.com/spf13/cobra"
)

func newLatestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "latest",
		Aliases: []string{"l"},
		Short:   "Show the latest reading of every node",
		Long: `Fetch the latest readings and print them with their status badge and the
threshold alert. Falls back to simulated data when the API fails unless
--no-simulate is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, a.cfg.APITimeout+time.Second)
			defer cancel()

			res := a.feed().Latest(ctx)
			ov := dashboard.BuildOverview(res.Readings, a.cfg.PM25AlertThreshold, time.Now())
			ov.Origin = res.Origin
			if res.Err != nil {
				ov.Degraded = res.Err.Error()
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, ov)
			}

			fmt.Fprintf(out, "source: %s\n", ov.Origin)
			if ov.Degraded != "" {
				fmt.Fprintf(out, "api error: %s\n", ov.Degraded)
			}
			if ov.Message != "" {
				fmt.Fprintln(out, ov.Message)
				return nil
			}

			tw := newTable(out, "NODE", "PM2.5", "CO2", "UPDATED")
			for _, n := range ov.Nodes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.NodeID, n.BadgeText, optInt(n.CO2), n.Updated)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if ov.Summary.AveragePM25 != nil {
				fmt.Fprintf(out, "average PM2.5: %s, cleanest: %s (%s)\n",
					optFloat(ov.Summary.AveragePM25), ov.Summary.BestNode, optFloat(ov.Summary.BestPM25))
			}
			if ov.Alert.Active {
				fmt.Fprintf(out, "ALERT: %s: %s\n", ov.Alert.Message, strings.Join(ov.Alert.Nodes, ", "))
			}
			return nil
		},
	}
}
