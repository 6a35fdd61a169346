package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of creation dates: YYYY-MM-DDThh:mm:ss±hhmm.
const DateLayout = "2006-01-02T15:04:05-0700"

func NowUnix() int64 {
	return time.Now().Unix()
}

// DateFormat renders and parses creation dates in a fixed location.
type DateFormat struct {
	loc *time.Location
}

func NewDateFormat(loc *time.Location) DateFormat {
	if loc == nil {
		loc = time.Local
	}
	return DateFormat{loc: loc}
}

// LoadDateFormat resolves an IANA zone name; an empty name selects the local zone.
func LoadDateFormat(name string) (DateFormat, error) {
	if name == "" || name == "Local" {
		return NewDateFormat(time.Local), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return DateFormat{}, fmt.Errorf("load location %q: %w", name, err)
	}
	return NewDateFormat(loc), nil
}

func (f DateFormat) Location() *time.Location {
	if f.loc == nil {
		return time.Local
	}
	return f.loc
}

func (f DateFormat) Format(t time.Time) string {
	return t.In(f.Location()).Format(DateLayout)
}

func (f DateFormat) FormatUnix(sec int64) string {
	return f.Format(time.Unix(sec, 0))
}

// Parse accepts only the exact canonical form. Values that time.Parse would
// tolerate, such as single digit hours, are rejected as well as out of range
// fields.
func (f DateFormat) Parse(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, f.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	if t.Format(DateLayout) != value {
		return time.Time{}, fmt.Errorf("parse date %q: not in canonical form %s", value, DateLayout)
	}
	return t, nil
}
