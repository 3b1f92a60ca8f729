package docstore

import (
	"fmt"
	"math"
	"time"
)

// Reader extracts typed fields from a document. Missing or null fields yield the
// zero value; a field holding the wrong type records the first error, which Err
// reports once all fields have been read.
type Reader struct {
	data map[string]any
	err  error
}

// Reader returns a field reader over the document's data.
func (d Document) Reader() *Reader {
	return &Reader{data: d.Data}
}

// Err returns the first type mismatch seen by the reader, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(key string, want string, got any) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: want %s, got %T", key, want, got)
	}
}

func (r *Reader) lookup(key string) (any, bool) {
	v, ok := r.data[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *Reader) String(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "string", v)
		return ""
	}
	return s
}

// OptString returns nil when the field is missing or null.
func (r *Reader) OptString(key string) *string {
	if _, ok := r.lookup(key); !ok {
		return nil
	}
	s := r.String(key)
	if r.err != nil {
		return nil
	}
	return &s
}

func (r *Reader) Int(key string) int {
	v, ok := r.lookup(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	r.fail(key, "integer", v)
	return 0
}

func (r *Reader) Float(key string) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	}
	r.fail(key, "number", v)
	return 0
}

// OptTime returns nil when the field is missing or null.
func (r *Reader) OptTime(key string) *time.Time {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	t, ok := v.(time.Time)
	if !ok {
		r.fail(key, "timestamp", v)
		return nil
	}
	return &t
}

// OptGeoPoint returns nil when the field is missing or null.
func (r *Reader) OptGeoPoint(key string) *GeoPoint {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	switch g := v.(type) {
	case GeoPoint:
		return &g
	case *GeoPoint:
		return g
	}
	r.fail(key, "geo point", v)
	return nil
}

// StringSlice returns an empty, non-nil slice when the field is missing.
func (r *Reader) StringSlice(key string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return []string{}
	}
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				r.fail(key, "list of strings", item)
				return []string{}
			}
			out = append(out, s)
		}
		return out
	}
	r.fail(key, "list", v)
	return []string{}
}
