// Package record holds client data records and the dotted-path lookup used
// to read values out of them.
//
// A Record is keyed by form section name ("personalInfo1", "addressAndPhone",
// ...). Each section is a free JSON tree: objects, lists, strings, numbers
// and booleans. Paths are dot separated; numeric segments index lists, so
// "otherNames.1.surname" reads the second alias' surname.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one applicant's data, keyed by section name.
type Record map[string]any

// Data is a single section's subtree.
type Data = map[string]any

// Parse decodes a JSON object into a Record. Numbers are kept as
// json.Number so that identifiers like "0012345" or long phone numbers
// survive untouched.
func Parse(raw []byte) (Record, error) {
	var rec Record
	if err := rec.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

// UnmarshalJSON decodes with json.Number, also when a Record is embedded
// in a larger message.
func (r *Record) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("record: parse: %w", err)
	}
	*r = m
	return nil
}

// Section returns the named section subtree, or nil when absent or not an
// object.
func (r Record) Section(name string) Data {
	if r == nil {
		return nil
	}
	d, _ := r[name].(map[string]any)
	return d
}

// Sections lists the section names present in the record.
func (r Record) Sections() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		if _, ok := r[k].(map[string]any); ok {
			names = append(names, k)
		}
	}
	return names
}

// Lookup walks a dotted path through nested maps and lists. Any missing
// link, out-of-range index or non-container intermediate yields
// (nil, false). An explicit JSON null also counts as absent.
func Lookup(v any, path string) (any, bool) {
	if path == "" {
		return v, v != nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Get is the typed form of Lookup. It reports false when the path is absent
// or the value is not a T.
func Get[T any](v any, path string) (T, bool) {
	var zero T
	raw, ok := Lookup(v, path)
	if !ok {
		return zero, false
	}
	t, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// String renders a scalar as a form string. Strings pass through, numbers
// print in decimal, booleans print "true"/"false". Containers report false.
func String(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// Bool interprets common truthy encodings: true, "true", "yes", "y", "1".
func Bool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1", "on":
			return true
		}
	case json.Number:
		return x.String() == "1"
	case float64:
		return x == 1
	case int:
		return x == 1
	}
	return false
}

// YesNo normalises a gate value to "Y" or "N". Unrecognised or absent input
// returns "".
func YesNo(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "Y"
		}
		return "N"
	case string:
		switch strings.ToUpper(strings.TrimSpace(x)) {
		case "Y", "YES", "TRUE", "1":
			return "Y"
		case "N", "NO", "FALSE", "0":
			return "N"
		}
	case json.Number, float64, int:
		s, _ := String(x)
		switch s {
		case "1":
			return "Y"
		case "0":
			return "N"
		}
	}
	return ""
}

// List returns the list at path, or nil.
func List(v any, path string) []any {
	l, _ := Get[[]any](v, path)
	return l
}
