package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/sheet"
	"github.com/couchcryptid/campus-air-dashboard/internal/dashboard"
	"github.com/spf13/cobra"
)

// errCheckFailed is returned by dht --check when the export has no usable rows.
var errCheckFailed = errors.New("dht check failed")

func newDHTCmd(a *app) *cobra.Command {
	var (
		url   string
		file  string
		check bool
	)

	cmd := &cobra.Command{
		Use:   "dht",
		Short: "Show or validate the DHT spreadsheet export",
		Long: `Load the DHT temperature/humidity export and print the newest rows and the
daily means of the last 7 days.

With --check, print a validation report instead: the detected header, how
many rows parsed and how many were dropped. The command fails when the column
count is wrong or no row is usable.

Examples:
  airctl dht
  airctl dht --check
  airctl dht --file export.csv --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				url = a.cfg.DHTSheetURL
			}

			var (
				res sheet.ParseResult
				err error
			)
			if file != "" {
				res, err = parseFile(file)
			} else {
				ctx, cancel := commandContext(cmd, a.cfg.APITimeout+time.Second)
				defer cancel()
				client := sheet.NewClient(a.cfg.APITimeout, nil, a.metrics, a.logger)
				res, err = client.Fetch(ctx, url)
			}

			out := cmd.OutOrStdout()
			if check {
				return report(out, res, err)
			}
			if err != nil {
				return err
			}

			view := dashboard.BuildDHTView(res.Records, nil)
			if a.jsonOut {
				return writeJSON(out, view)
			}
			if view.Message != "" {
				fmt.Fprintln(out, view.Message)
				return nil
			}

			fmt.Fprintf(out, "%d rows\n\n", view.Count)
			tw := newTable(out, "TIMESTAMP", "DEVICE", "TEMP", "HUMIDITY")
			for _, r := range view.Latest {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Device, r.Temp, r.Humidity)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			tw = newTable(out, "DATE", "MEAN TEMP", "MEAN HUMIDITY", "SAMPLES")
			for _, d := range view.Daily {
				fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%d\n", d.Date, d.Temp, d.Humidity, d.Samples)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Export URL (default DHT_SHEET_URL)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read a local CSV file instead of the export URL")
	cmd.Flags().BoolVar(&check, "check", false, "Print a validation report")
	return cmd
}

func parseFile(path string) (sheet.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return sheet.ParseResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return sheet.ParseDHT(f, nil)
}

func report(out io.Writer, res sheet.ParseResult, loadErr error) error {
	if len(res.Header) > 0 {
		fmt.Fprintf(out, "header:  %s\n", strings.Join(res.Header, ", "))
	}
	if loadErr != nil {
		fmt.Fprintf(out, "FAIL: %v\n", loadErr)
		return fmt.Errorf("%w: %w", errCheckFailed, loadErr)
	}

	fmt.Fprintf(out, "rows:    %d\n", len(res.Records))
	fmt.Fprintf(out, "dropped: %d\n", res.Dropped)
	if len(res.Records) == 0 {
		fmt.Fprintln(out, "FAIL: no usable rows")
		return errCheckFailed
	}
	first, last := res.Records[0].Timestamp, res.Records[len(res.Records)-1].Timestamp
	fmt.Fprintf(out, "range:   %s .. %s\n", first.Format(time.DateTime), last.Format(time.DateTime))
	fmt.Fprintln(out, "PASS")
	return nil
}
