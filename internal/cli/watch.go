package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow dashboard snapshots on Kafka",
		Long: `Consume the snapshots the dashboard publishes to KAFKA_SNAPSHOT_TOPIC and
print one line per refresh. Stops after --count snapshots, or on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is empty")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			reader := kafka.NewReader(a.cfg.KafkaBrokers, a.cfg.KafkaSnapshotTopic, a.logger)
			defer reader.Close()

			return followSnapshots(ctx, reader, cmd.OutOrStdout(), count, a.jsonOut, a.logger)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many snapshots (0 = follow)")
	return cmd
}

type snapshotSource interface {
	Next(ctx context.Context) (kafka.Received, error)
}

// followSnapshots prints snapshots from src until count have been printed
// (count <= 0 follows forever) or ctx is cancelled. Malformed messages are
// skipped and not counted.
func followSnapshots(ctx context.Context, src snapshotSource, out io.Writer, count int, jsonOut bool, logger *slog.Logger) error {
	for seen := 0; count <= 0 || seen < count; {
		rec, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, kafka.ErrMalformedSnapshot) {
				logger.Debug("watch skipped message", "error", err)
				continue
			}
			return err
		}
		seen++
		if jsonOut {
			if err := writeJSON(out, rec.Snapshot); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, formatSnapshot(rec.Snapshot))
	}
	return nil
}

func formatSnapshot(s domain.Snapshot) string {
	sum := domain.Summarize(s.Readings)
	line := fmt.Sprintf("%s  %-9s  nodes=%d  avg_pm2_5=%s",
		s.GeneratedAt.Local().Format("2006-01-02 15:04:05"), s.Origin, sum.Nodes, optFloat(sum.AveragePM25))
	if s.AlertActive() {
		line += fmt.Sprintf("  ALERT>%g: %s", s.Threshold, strings.Join(s.Exceeding, ","))
	}
	return line
}
