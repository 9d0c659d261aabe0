package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"shift-scheduler/errors"
	"shift-scheduler/models"
)

// joinDateLayouts are tried in order when reading a roster join date.
var joinDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// ParseDemand reads hourly forecasts as "hour, predicted_count" rows.
// Lines starting with '#' are headers/comments. Range checks on the values are
// left to the scheduler so every input source is validated the same way.
func ParseDemand(r io.Reader) ([]models.Demand, error) {
	var data []models.Demand
	err := readRecords(r, 2, func(lineNum int, record []string) error {
		hour, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %v", errors.ErrInvalidHour, err),
			}
		}
		count, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %v", errors.ErrInvalidCount, err),
			}
		}
		data = append(data, models.Demand{Hour: hour, Predicted: count})
		return nil
	})
	return data, err
}

// ParseRoster reads worker rows as
// "code, total_assigned, join_date, role, preferred_hours".
// preferred_hours lists hours separated by ';' or given as a quoted "[6, 12]" list.
// Join dates accept "2006-01-02", RFC 3339 or "2006-01-02 15:04:05" (UTC).
func ParseRoster(r io.Reader) ([]models.RosterEntry, error) {
	var data []models.RosterEntry
	err := readRecords(r, 5, func(lineNum int, record []string) error {
		entry := models.RosterEntry{}

		code, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %v", errors.ErrInvalidCode, err),
			}
		}
		entry.Code = code

		entry.TotalAssigned, err = strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %v", errors.ErrInvalidCount, err),
			}
		}

		entry.JoinDate, err = parseJoinDate(strings.TrimSpace(record[2]))
		if err != nil {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %v", errors.ErrInvalidJoinDate, err),
			}
		}

		entry.Role = strings.TrimSpace(record[3])

		entry.PreferredStartHours, err = ParseHourList(record[4])
		if err != nil {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %v", errors.ErrInvalidPreferredHour, err),
			}
		}

		data = append(data, entry)
		return nil
	})
	return data, err
}

// ParseHourList splits "6;12", "6 12" or "[6, 12]" into hours.
func ParseHourList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ';', ',', '[', ']', ' ', '\t':
			return true
		}
		return false
	})
	hours := make([]int, 0, len(fields))
	for _, f := range fields {
		h, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, nil
}

// readRecords walks a CSV stream, skipping blank and '#' lines, and hands every
// row with exactly fields columns to fn along with its line number.
func readRecords(r io.Reader, fields int, fn func(lineNum int, record []string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading CSV: %w", err)
		}
		lineNum, _ := reader.FieldPos(0)

		// Handle headers/comments
		if len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		if len(record) != fields {
			return &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    errors.ErrInvalidFieldCount,
			}
		}
		if err := fn(lineNum, record); err != nil {
			return err
		}
	}
}

func parseJoinDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range joinDateLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
