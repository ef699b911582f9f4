package csvsource

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

	"usage-watch/src/helpers"
	"usage-watch/src/logger"
	"usage-watch/src/models"
)

// Accepted header names per field. The short forms match billing exports
// keyed by month.
var columnAliases = map[string][]string{
	"customer_id":  {"customer_id", "customer", "customer_name"},
	"utility_type": {"utility_type", "utility"},
	"period_start": {"period_start", "month"},
	"period_end":   {"period_end"},
	"quantity":     {"quantity", "usage_amount", "usage"},
}

var requiredColumns = []string{"customer_id", "utility_type", "period_start", "quantity"}

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// -----------------------------------------------------------------------------
// CSVSource reads usage readings from a CSV file with a header row.
// -----------------------------------------------------------------------------

type CSVSource struct {
	Path   string
	Logger *logger.Logger

	open func() (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------

func NewCSVSource(path string, log *logger.Logger) *CSVSource {
	if log == nil {
		log = logger.NewLogger(nil, "CSVSource")
	}
	return &CSVSource{
		Path:   path,
		Logger: log,
		open:   func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// -----------------------------------------------------------------------------

// NewCSVSourceFromReader wraps an already open stream; name labels it in logs.
func NewCSVSourceFromReader(name string, r io.Reader, log *logger.Logger) *CSVSource {
	s := NewCSVSource(name, log)
	s.open = func() (io.ReadCloser, error) { return io.NopCloser(r), nil }
	return s
}

// -----------------------------------------------------------------------------

func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

// -----------------------------------------------------------------------------

// ReadAll parses every row. Malformed rows become per-row validation errors
// and are left out of the returned readings; only I/O and header problems
// fail the whole read.
func (s *CSVSource) ReadAll(ctx context.Context) ([]models.MUsageReading, []error, error) {
	f, err := s.open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// 1. Resolve columns from the header
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", s.Path, err)
	}
	columns, err := resolveColumns(header)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	// 2. Parse rows
	var readings []models.MUsageReading
	var rowErrs []error
	line := 1
	for {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrs = append(rowErrs, helpers.NewValidationError("row", "%s line %d: %v", s.Path, line, err))
				continue
			}
			return nil, nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
		}

		r, err := parseRow(record, columns, int64(line))
		if err == nil {
			err = helpers.ValidateReading(r)
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("%s line %d: %w", s.Path, line, err))
			continue
		}
		readings = append(readings, r)
	}

	if len(rowErrs) > 0 {
		s.Logger.Warning("%s: %d rows rejected, %d accepted", s.Path, len(rowErrs), len(readings))
	} else {
		s.Logger.Debug("%s: %d rows accepted", s.Path, len(readings))
	}
	return readings, rowErrs, nil
}

// -----------------------------------------------------------------------------

func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	columns := make(map[string]int)
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[field] = i
				break
			}
		}
	}

	var missing []string
	for _, field := range requiredColumns {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

// -----------------------------------------------------------------------------

func parseRow(record []string, columns map[string]int, id int64) (models.MUsageReading, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	utility, err := models.ParseUtilityType(strings.ToLower(field("utility_type")))
	if err != nil {
		return models.MUsageReading{}, helpers.NewValidationError("utility_type", "%v", err)
	}

	start, monthly, err := parsePeriod(field("period_start"))
	if err != nil {
		return models.MUsageReading{}, helpers.NewValidationError("period", "period_start: %v", err)
	}

	var end time.Time
	if raw := field("period_end"); raw != "" {
		parsedEnd, endMonthly, err := parsePeriod(raw)
		if err != nil {
			return models.MUsageReading{}, helpers.NewValidationError("period", "period_end: %v", err)
		}
		end = parsedEnd
		if endMonthly {
			end = end.AddDate(0, 1, 0)
		}
	} else if monthly {
		end = start.AddDate(0, 1, 0)
	} else {
		return models.MUsageReading{}, helpers.NewValidationError("period", "period_end is required for daily period_start")
	}

	quantity, err := strconv.ParseFloat(field("quantity"), 64)
	if err != nil {
		return models.MUsageReading{}, helpers.NewValidationError("quantity", "invalid quantity %q", field("quantity"))
	}

	return models.MUsageReading{
		ID:          id,
		CustomerID:  field("customer_id"),
		UtilityType: utility,
		PeriodStart: start,
		PeriodEnd:   end,
		Quantity:    quantity,
	}, nil
}

// -----------------------------------------------------------------------------

// parsePeriod accepts YYYY-MM-DD or the YYYY-MM month shorthand; the bool
// reports the shorthand.
func parsePeriod(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(dayLayout, raw); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(monthLayout, raw); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or YYYY-MM)", raw)
}
