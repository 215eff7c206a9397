package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sweepstat/internal/store"
	"sweepstat/pkg/model"
)

// CSVFile is a series source backed by one
// timestamp,open,high,low,close[,volume] file. The key is ignored.
type CSVFile struct {
	Path string
}

// Load reads the file and returns rows in [from, to]. Rows are returned in
// file order; the analyzer sorts and validates.
func (f CSVFile) Load(ctx context.Context, _ store.Key, from, to time.Time) ([]model.Candle, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Path, err)
	}
	defer file.Close()

	candles, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := candles[:0]
	for _, c := range candles {
		if !from.IsZero() && c.Time.Before(from) {
			continue
		}
		if !to.IsZero() && c.Time.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadCSV parses candles. A header row is skipped when its first field is not
// a timestamp. Timestamps are unix milliseconds, RFC3339 or
// "2006-01-02 15:04:05" in UTC.
func ReadCSV(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []model.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		ts, err := parseTimestamp(rec[0])
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: expected at least 5 fields, got %d", line, len(rec))
		}

		c := model.Candle{Time: ts}
		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close}
		if len(rec) > 5 {
			fields = append(fields, &c.Volume)
		}
		for i, dst := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, i+2, err)
			}
			*dst = v
		}
		out = append(out, c)
	}
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
