package store

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row keyed by column name.
//
// Drivers disagree on value types (gocql yields gocql.UUID, int and
// time.Time; SQLite yields string, int64 and unix milliseconds), so the
// accessors below normalize them and the core stays dialect-agnostic.
type Row map[string]any

// String returns the column as a string ("" when absent or NULL).
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// StringPtr returns the column as a nullable string. gocql decodes a NULL
// text column as "", so an empty value is reported as nil as well.
func (r Row) StringPtr(col string) *string {
	s := r.String(col)
	if s == "" {
		return nil
	}
	return &s
}

// Int64 returns the column as an int64 (0 when absent, NULL or unparsable).
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Time returns the column as a UTC time. Integers are read as unix
// milliseconds; strings as RFC 3339.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}
		}
		return v.UTC()
	case *time.Time:
		if v == nil {
			return time.Time{}
		}
		return v.UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	case int:
		return time.UnixMilli(int64(v)).UTC()
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC()
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// TimePtr returns the column as a nullable time.
func (r Row) TimePtr(col string) *time.Time {
	t := r.Time(col)
	if t.IsZero() {
		return nil
	}
	return &t
}
