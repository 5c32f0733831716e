package psqlx

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/hstore"
)

// Hstore is the value of an hstore column. A nil map is a NULL column, a nil
// value pointer is a key without value (NULL), which is different from an
// empty string.
//
// Hstore can be scanned from and written to any driver: as text through
// lib/pq's hstore codec, or natively when pgx has the hstore type registered
// (see package pgxhstore).
type Hstore map[string]*string

// NewHstore creates an Hstore from plain text entries.
func NewHstore(entries map[string]string) Hstore {
	h := make(Hstore, len(entries))
	for key, value := range entries {
		h.Set(key, value)
	}
	return h
}

// Get returns the value of key. The returned pointer is nil if the key
// exists but has NULL value; ok is false if the key does not exist.
func (h Hstore) Get(key string) (value *string, ok bool) {
	value, ok = h[key]
	return
}

// Set sets the text value of key.
func (h Hstore) Set(key, value string) {
	h[key] = &value
}

// SetNull sets the value of key to NULL.
func (h Hstore) SetNull(key string) {
	h[key] = nil
}

// Len returns number of keys.
func (h Hstore) Len() int {
	return len(h)
}

// Keys returns all keys in sorted order.
func (h Hstore) Keys() []string {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Strings returns the entries as plain strings, NULL values become empty
// strings.
func (h Hstore) Strings() map[string]string {
	out := make(map[string]string, len(h))
	for key, value := range h {
		if value == nil {
			out[key] = ""
		} else {
			out[key] = *value
		}
	}
	return out
}

func (h *Hstore) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case Hstore:
		*h = v
		return nil
	case map[string]*string:
		*h = Hstore(v)
		return nil
	case pgtype.Hstore:
		*h = Hstore(v)
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into hstore", ErrTypeAssertionFailed, src)
	}
	var raw hstore.Hstore
	if err := raw.Scan(b); err != nil {
		return err
	}
	*h = fromNullStrings(raw.Map)
	return nil
}

// Value encodes h in hstore text format.
func (h Hstore) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	raw := hstore.Hstore{Map: make(map[string]sql.NullString, len(h))}
	for key, value := range h {
		if value == nil {
			raw.Map[key] = sql.NullString{}
		} else {
			raw.Map[key] = sql.NullString{String: *value, Valid: true}
		}
	}
	v, err := raw.Value()
	if err != nil {
		return nil, err
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return v, nil
}

func (h *Hstore) ScanHstore(v pgtype.Hstore) error {
	*h = Hstore(v)
	return nil
}

func (h Hstore) HstoreValue() (pgtype.Hstore, error) {
	return pgtype.Hstore(h), nil
}

func fromNullStrings(in map[string]sql.NullString) Hstore {
	if in == nil {
		return nil
	}
	h := make(Hstore, len(in))
	for key, value := range in {
		if value.Valid {
			h.Set(key, value.String)
		} else {
			h.SetNull(key)
		}
	}
	return h
}

var nullStringType = reflect.TypeOf(sql.NullString{})

// isHstoreMap returns true for maps that can hold an hstore column: string
// keys and string, *string or sql.NullString values.
func isHstoreMap(rt reflect.Type) bool {
	if rt.Kind() != reflect.Map || rt.Key().Kind() != reflect.String {
		return false
	}
	elem := rt.Elem()
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	return elem.Kind() == reflect.String || rt.Elem() == nullStringType
}

// hstoreScanner scans an hstore column into a field whose type is not
// Hstore, like map[string]string tagged `dataType:"hstore"`, or a pointer to
// one. NULL values become empty strings in a map[string]string.
type hstoreScanner struct {
	dest interface{}
}

func (s hstoreScanner) Scan(src interface{}) error {
	var h Hstore
	if err := h.Scan(src); err != nil {
		return err
	}
	rv := reflect.ValueOf(s.dest).Elem()
	if rv.Kind() == reflect.Ptr {
		if h == nil {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if h == nil {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	if !isHstoreMap(rv.Type()) {
		return fmt.Errorf("%w: cannot scan hstore into %s", ErrTypeAssertionFailed, rv.Type())
	}
	var out interface{}
	switch elem := rv.Type().Elem(); {
	case elem == nullStringType:
		m := make(map[string]sql.NullString, len(h))
		for key, value := range h {
			if value != nil {
				m[key] = sql.NullString{String: *value, Valid: true}
			} else {
				m[key] = sql.NullString{}
			}
		}
		out = m
	case elem.Kind() == reflect.Ptr:
		out = map[string]*string(h)
	default:
		out = h.Strings()
	}
	converted := reflect.ValueOf(out)
	if !converted.Type().ConvertibleTo(rv.Type()) {
		return fmt.Errorf("%w: cannot scan hstore into %s", ErrTypeAssertionFailed, rv.Type())
	}
	rv.Set(converted.Convert(rv.Type()))
	return nil
}

// toHstore converts a mapping operand into an Hstore. Values that are not
// text are converted with fmt.Sprint, nil stays NULL. The second return
// value is false if value is not a mapping.
func toHstore(value interface{}) (Hstore, bool) {
	switch v := value.(type) {
	case Hstore:
		return v, true
	case *Hstore:
		if v == nil {
			return nil, true
		}
		return *v, true
	case *Dictionary:
		if v == nil {
			return nil, true
		}
		return v.Hstore, true
	case pgtype.Hstore:
		return Hstore(v), true
	case map[string]*string:
		return Hstore(v), true
	case map[string]string:
		return NewHstore(v), true
	case map[string]sql.NullString:
		return fromNullStrings(v), true
	case map[string]interface{}:
		h := make(Hstore, len(v))
		for key, val := range v {
			h.setAny(key, val)
		}
		return h, true
	}
	return nil, false
}

func (h Hstore) setAny(key string, value interface{}) {
	switch v := value.(type) {
	case nil:
		h.SetNull(key)
	case string:
		h.Set(key, v)
	case *string:
		h[key] = v
	case []byte:
		h.Set(key, string(v))
	case sql.NullString:
		if v.Valid {
			h.Set(key, v.String)
		} else {
			h.SetNull(key)
		}
	default:
		h.Set(key, fmt.Sprint(v))
	}
}
