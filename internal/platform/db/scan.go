package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time scans a timestamp column regardless of how the driver surfaces it.
func Time(dst *time.Time) *TimeScanner {
	return &TimeScanner{dst: dst}
}

// NullTime scans a nullable timestamp column into a pointer.
func NullTime(dst **time.Time) *NullTimeScanner {
	return &NullTimeScanner{dst: dst}
}

// TimeScanner implements sql.Scanner for non-null timestamps.
type TimeScanner struct{ dst *time.Time }

// Scan implements sql.Scanner.
func (s *TimeScanner) Scan(src any) error {
	t, ok, err := parseTime(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("platform/db: unexpected NULL timestamp")
	}
	*s.dst = t
	return nil
}

// NullTimeScanner implements sql.Scanner for nullable timestamps.
type NullTimeScanner struct{ dst **time.Time }

// Scan implements sql.Scanner.
func (s *NullTimeScanner) Scan(src any) error {
	t, ok, err := parseTime(src)
	if err != nil {
		return err
	}
	if !ok {
		*s.dst = nil
		return nil
	}
	*s.dst = &t
	return nil
}

func parseTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case string:
		return parseTimeString(v)
	case []byte:
		return parseTimeString(string(v))
	case int64:
		return time.Unix(v, 0).UTC(), true, nil
	default:
		return time.Time{}, false, fmt.Errorf("platform/db: cannot scan %T into time", src)
	}
}

func parseTimeString(v string) (time.Time, bool, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("platform/db: cannot parse time %q", v)
}

// NullString converts an optional string into a driver value.
func NullString(v *string) driver.Value {
	if v == nil {
		return nil
	}
	return *v
}

// NullTimeValue converts an optional timestamp into a driver value.
func NullTimeValue(v *time.Time) driver.Value {
	if v == nil {
		return nil
	}
	return v.UTC()
}
