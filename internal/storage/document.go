package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/period"
)

// Document is a flat mapping of field names to strings, numbers and booleans.
// Dates are YYYY-MM-DD strings and amounts are decimal strings, although
// numeric amounts written by older clients are accepted on read.
type Document map[string]any

// Clone returns a shallow copy of d. Values are primitives, so the copy is
// independent of d.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// Merge writes every field of patch into d.
func (d Document) Merge(patch Document) {
	for k, v := range patch {
		d[k] = v
	}
}

// Has reports whether field is present and not null.
func (d Document) Has(field string) bool {
	v, ok := d[field]
	return ok && v != nil
}

// String returns a string field, or "" when missing or not a string.
func (d Document) String(field string) string {
	switch v := d[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Int returns an integer field, or def when missing or malformed.
func (d Document) Int(field string, def int) int {
	switch v := d[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns a boolean field and whether it was present as a boolean.
func (d Document) Bool(field string) (bool, bool) {
	switch v := d[field].(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	case int:
		return v != 0, true
	}
	return false, false
}

// Decimal returns an amount field, or zero when missing or malformed.
func (d Document) Decimal(field string) decimal.Decimal {
	switch v := d[field].(type) {
	case string:
		if n, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return n
		}
	case json.Number:
		if n, err := decimal.NewFromString(v.String()); err == nil {
			return n
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	}
	return decimal.Zero
}

// Date returns a date field, or the zero time when missing or malformed.
func (d Document) Date(field string) time.Time {
	t, err := period.ParseDate(d.String(field))
	if err != nil {
		return time.Time{}
	}
	return t
}

// CompareValues orders two document values. Numbers compare numerically,
// strings lexically, booleans false before true. Missing values sort first.
// Values of different kinds compare by kind.
func CompareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return ka - kb
	}
	switch ka {
	case kindNumber:
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}

// EqualValues reports whether two document values are equal under
// CompareValues.
func EqualValues(a, b any) bool {
	return kindOf(a) == kindOf(b) && CompareValues(a, b) == 0
}

const (
	kindNull = iota
	kindBool
	kindNumber
	kindString
	kindOther
)

func kindOf(v any) int {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case int, int32, int64, float32, float64, json.Number:
		return kindNumber
	case string:
		return kindString
	}
	return kindOther
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// DecodeJSON parses a stored JSON document, keeping numbers as json.Number.
func DecodeJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
