package psqlx

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"
)

// arrayScanner scans an array column into a pointer to a Go slice, or into a
// pointer to a slice pointer which is nil for NULL. Text arrays (lib/pq,
// database/sql) are parsed by lib/pq, binary arrays (pgx) are decoded by pgx
// using the element type written in the array header.
type arrayScanner struct {
	dest interface{}
}

var (
	binaryArraysMu sync.Mutex
	binaryArrays   = pgtype.NewMap()
)

func (a arrayScanner) Scan(src interface{}) error {
	rv := reflect.ValueOf(a.dest).Elem()
	if rv.Kind() == reflect.Ptr && src != nil {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return arrayScanner{rv.Interface()}.Scan(src)
	}
	switch v := src.(type) {
	case nil:
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	case []byte:
		if isBinaryArray(v) {
			return scanBinaryArray(v, a.dest)
		}
	}
	return pq.Array(a.dest).Scan(src)
}

// Text arrays start with "{", or "[" when they carry dimension decoration.
// Binary arrays start with a 12 byte header: ndim, flags, element oid.
func isBinaryArray(src []byte) bool {
	return len(src) >= 12 && src[0] != '{' && src[0] != '['
}

func scanBinaryArray(src []byte, dest interface{}) error {
	elementOID := binary.BigEndian.Uint32(src[8:12])
	binaryArraysMu.Lock()
	defer binaryArraysMu.Unlock()
	element, ok := binaryArrays.TypeForOID(elementOID)
	if !ok {
		return fmt.Errorf("%w: unknown array element type %d", ErrTypeAssertionFailed, elementOID)
	}
	array, ok := binaryArrays.TypeForName("_" + element.Name)
	if !ok {
		return fmt.Errorf("%w: no array type for %s", ErrTypeAssertionFailed, element.Name)
	}
	return binaryArrays.Scan(array.OID, pgtype.BinaryFormatCode, src, dest)
}

// arrayLiteral encodes a slice as an array literal. Literals are sent as text
// by every driver and cast by the statement, like "$1::text[]".
func arrayLiteral(slice interface{}) (string, error) {
	v, err := pq.Array(slice).Value()
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case nil:
		return "{}", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("%w: %T", ErrTypeAssertionFailed, v)
}

// isArrayTarget returns true if rt is a slice or a pointer to a slice.
func isArrayTarget(rt reflect.Type) bool {
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt.Kind() == reflect.Slice
}

// textArray encodes keys as a text[] literal.
func textArray(keys []string) string {
	s, _ := arrayLiteral(keys)
	return s
}
