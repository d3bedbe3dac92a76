package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
)

var (
	// ErrColumnCount is returned when the export does not have exactly four columns.
	ErrColumnCount = errors.New("unexpected column count")

	// ErrTwoColumns is the two-column shape produced by a misconfigured Apps
	// Script (appendRow writing only part of the row). It wraps ErrColumnCount.
	ErrTwoColumns = fmt.Errorf("%w: sheet sent only 2 columns, check the Apps Script appendRow call", ErrColumnCount)
)

// Columns is the positional mapping applied to a four-column export.
var Columns = []string{"timestamp", "device", "temp", "humidity"}

// dayFirstLayouts are tried in order. Day precedes month in every ambiguous
// layout, matching how the sheet records dates.
var dayFirstLayouts = []string{
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
	"02/01/2006, 15:04:05",
	"2/1/2006, 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"2-1-2006 15:04:05",
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339Nano,
}

// ParseResult is the normalized export plus bookkeeping about dropped rows.
type ParseResult struct {
	Header  []string
	Records []domain.DHTRecord
	Dropped int
}

// ParseDHT reads a CSV export with a header row. Exactly four columns are
// accepted; any other shape fails before rows are read. Rows whose timestamp,
// temperature, or humidity do not parse are dropped. Records are returned in
// ascending timestamp order.
func ParseDHT(r io.Reader, loc *time.Location) (ParseResult, error) {
	if loc == nil {
		loc = time.UTC
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, fmt.Errorf("%w: 0", ErrColumnCount)
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read csv header: %w", err)
	}

	switch len(header) {
	case len(Columns):
	case 2:
		return ParseResult{Header: header}, ErrTwoColumns
	default:
		return ParseResult{Header: header}, fmt.Errorf("%w: %d", ErrColumnCount, len(header))
	}

	res := ParseResult{Header: header, Records: []domain.DHTRecord{}}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				res.Dropped++
				continue
			}
			return ParseResult{}, fmt.Errorf("read csv row: %w", err)
		}

		rec, ok := parseRow(row, loc)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		return res.Records[i].Timestamp.Before(res.Records[j].Timestamp)
	})
	return res, nil
}

func parseRow(row []string, loc *time.Location) (domain.DHTRecord, bool) {
	if len(row) != len(Columns) {
		return domain.DHTRecord{}, false
	}
	ts, ok := ParseDayFirst(row[0], loc)
	if !ok {
		return domain.DHTRecord{}, false
	}
	temp, ok := parseNumber(row[2])
	if !ok {
		return domain.DHTRecord{}, false
	}
	hum, ok := parseNumber(row[3])
	if !ok {
		return domain.DHTRecord{}, false
	}
	return domain.DHTRecord{
		Timestamp: ts,
		Device:    strings.TrimSpace(row[1]),
		Temp:      temp,
		Humidity:  hum,
	}, true
}

// ParseDayFirst parses a sheet timestamp, reading ambiguous dates as day/month.
// Layouts without a zone are interpreted in loc.
func ParseDayFirst(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
