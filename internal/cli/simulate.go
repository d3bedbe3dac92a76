package cli

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/simulate"
	"github.com/spf13/cobra"
)

// fixtures is the simulated payload in the API's wire shapes.
type fixtures struct {
	Latest []domain.Reading          `json:"latest"`
	Series map[string]domain.Series `json:"series"`
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		outDir  string
		seed    uint64
		points  int
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate simulated readings and series",
		Long: `Generate one latest snapshot and a PM2.5 series per node from the built-in
simulator. A fixed --seed makes the output reproducible, which is useful for
API mocks and test fixtures.

With --out, writes latest.json and series_<node>.json into the directory in
the same shapes the API serves; otherwise prints everything as one document.

Examples:
  airctl simulate --seed 42
  airctl simulate --seed 42 --out testdata/mock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if points <= 0 {
				return fmt.Errorf("--points must be positive")
			}
			if minutes <= 0 {
				minutes = a.cfg.SeriesMinutes
			}

			opts := []simulate.Option{simulate.WithSeriesPoints(points)}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, simulate.WithNoise(rand.New(rand.NewPCG(seed, seed))))
			}
			gen := simulate.New(opts...)

			fx := fixtures{Latest: gen.Latest(), Series: make(map[string]domain.Series)}
			for _, id := range gen.NodeIDs() {
				fx.Series[id] = domain.Series{NodeID: id, Points: gen.Series(id, minutes)}
			}
			a.logger.Debug("simulated data generated", "nodes", len(fx.Latest), "points", points, "minutes", minutes)

			if outDir == "" {
				return writeJSON(cmd.OutOrStdout(), fx)
			}
			return writeFixtures(cmd, outDir, fx)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write fixture files into")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Noise seed for reproducible output")
	cmd.Flags().IntVar(&points, "points", simulate.DefaultSeriesPoints, "Points per series")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "Series window in minutes (default SERIES_MINUTES)")
	return cmd
}

func writeFixtures(cmd *cobra.Command, dir string, fx fixtures) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := writeFile(filepath.Join(dir, "latest.json"), fx.Latest); err != nil {
		return err
	}
	for id, s := range fx.Series {
		if err := writeFile(filepath.Join(dir, "series_"+id+".json"), s); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", len(fx.Series)+1, dir)
	return nil
}

func writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
