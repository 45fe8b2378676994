package schema

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/ds160fill/record"
)

var (
	strict     = bluemonday.StrictPolicy()
	spaces     = regexp.MustCompile(`\s+`)
	isoDate    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	monthNames = [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
)

// Sanitize strips markup and collapses whitespace in free-text values. The
// form rejects angle brackets outright.
func Sanitize(raw any, present bool) (any, bool) {
	s, ok := record.String(raw)
	if !present || !ok {
		return raw, present
	}
	clean := html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(spaces.ReplaceAllString(clean, " ")), true
}

// BoolOrFalse turns an absent checkbox source into a definite false.
func BoolOrFalse(raw any, present bool) (any, bool) {
	if !present {
		return false, true
	}
	return record.Bool(raw), true
}

// DefaultTo substitutes v for an absent or empty value.
func DefaultTo(v any) Transform {
	return func(raw any, present bool) (any, bool) {
		if s, ok := record.String(raw); !present || (ok && s == "") {
			return v, true
		}
		return raw, true
	}
}

// FirstOf reads field from the first item of a list, defaulting to def.
func FirstOf(field string, def string) Transform {
	return func(raw any, present bool) (any, bool) {
		if v, ok := record.Lookup(raw, "0."+field); present && ok {
			if s, ok := record.String(v); ok && s != "" {
				return s, true
			}
		}
		return def, true
	}
}

// DatePart extracts "day", "month" or "year" from an ISO date, formatted for
// the split date controls (two-digit day, month abbreviation, four-digit
// year).
func DatePart(part string) Transform {
	return func(raw any, present bool) (any, bool) {
		s, ok := record.String(raw)
		if !present || !ok {
			return nil, false
		}
		m := isoDate.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			return nil, false
		}
		switch part {
		case "day":
			return m[3], true
		case "month":
			return MonthAbbrev(m[2], true)
		case "year":
			return m[1], true
		}
		return nil, false
	}
}

// MonthAbbrev maps 1..12, "01", "Jan", "January" to "JAN".
func MonthAbbrev(raw any, present bool) (any, bool) {
	s, ok := record.String(raw)
	if !present || !ok {
		return raw, present
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return monthNames[n-1], true
		}
		return s, true
	}
	up := strings.ToUpper(s)
	for _, m := range monthNames {
		if strings.HasPrefix(up, m) {
			return m, true
		}
	}
	return s, true
}

// TwoDigit left-pads a single digit with a zero.
func TwoDigit(raw any, present bool) (any, bool) {
	s, ok := record.String(raw)
	if !present || !ok {
		return raw, present
	}
	s = strings.TrimSpace(s)
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return "0" + s, true
	}
	return s, true
}

// Columns turns a list of objects into rows of strings, one column per
// field. Missing fields become empty strings.
func Columns(fields ...string) Transform {
	return func(raw any, present bool) (any, bool) {
		items, ok := raw.([]any)
		if !present || !ok || len(items) == 0 {
			return nil, false
		}
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			row := make([]string, len(fields))
			for j, f := range fields {
				var v any
				if f == "" {
					v = it
				} else {
					v, _ = record.Lookup(it, f)
				}
				row[j], _ = record.String(v)
			}
			rows = append(rows, row)
		}
		return rows, true
	}
}

// Chain applies transforms left to right, stopping at the first skip.
func Chain(ts ...Transform) Transform {
	return func(raw any, present bool) (any, bool) {
		for _, t := range ts {
			raw, present = t(raw, present)
			if !present {
				return nil, false
			}
		}
		return raw, present
	}
}
