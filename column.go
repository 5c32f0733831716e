package psqlx

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
)

type (
	// StorageKind is the category of a column's database type. It selects
	// how values are encoded and how lookups against the column are
	// lowered to SQL.
	StorageKind int

	// ColumnType describes how a field is stored. It is fixed when the
	// Model is created.
	ColumnType struct {
		Kind        StorageKind
		ElementType string // array element type, like "int" or "varchar(20)"
		Dimension   int    // array nesting depth, at least 1
		References  bool   // hstore values are references to other rows
	}

	// IntrospectionRule declares a descriptor parameter that changes the
	// database type of a column, so schema diff tools must compare it.
	IntrospectionRule struct {
		Param   string
		Default interface{}
		value   func(ColumnType) interface{}
	}
)

const (
	StorageScalar StorageKind = iota
	StorageArray
	StorageHstore
)

var (
	// HstoreType is the column type of Hstore fields.
	HstoreType = ColumnType{Kind: StorageHstore}

	// ReferencesType is the column type of References fields.
	ReferencesType = ColumnType{Kind: StorageHstore, References: true}

	// IntrospectionRules lists, per storage kind, which parameters of a
	// column type are structurally significant. The dbtype default is the
	// element type of []int and []int64 fields.
	IntrospectionRules = map[StorageKind][]IntrospectionRule{
		StorageArray: {
			{Param: "dbtype", Default: "bigint", value: func(c ColumnType) interface{} { return c.ElementType }},
			{Param: "dimension", Default: 1, value: func(c ColumnType) interface{} { return c.Dimension }},
		},
	}
)

func (k StorageKind) String() string {
	switch k {
	case StorageArray:
		return "array"
	case StorageHstore:
		return "hstore"
	}
	return "scalar"
}

// ArrayType returns the column type of an array of elementType nested
// dimension times. It panics if dimension is less than 1.
func ArrayType(elementType string, dimension int) ColumnType {
	if dimension < 1 {
		panic(fmt.Sprintf("psqlx: invalid array dimension %d", dimension))
	}
	return ColumnType{Kind: StorageArray, ElementType: elementType, Dimension: dimension}
}

// String renders the database type: "int[][]" for a two-dimensional int
// array, "hstore" for hstore columns. Scalar columns render as empty string.
func (c ColumnType) String() string {
	switch c.Kind {
	case StorageArray:
		return c.ElementType + strings.Repeat("[]", c.Dimension)
	case StorageHstore:
		return "hstore"
	}
	return ""
}

// Introspect returns the structurally significant parameters of c that
// differ from their defaults.
func (c ColumnType) Introspect() map[string]interface{} {
	out := map[string]interface{}{}
	for _, rule := range IntrospectionRules[c.Kind] {
		if v := rule.value(c); v != rule.Default {
			out[rule.Param] = v
		}
	}
	return out
}

// Prepare converts value into what is sent to the database for a column of
// this type. ErrInvalidValue is returned if value has the wrong shape.
func (c ColumnType) Prepare(value interface{}) (interface{}, error) {
	switch c.Kind {
	case StorageArray:
		return c.prepareArray(value)
	case StorageHstore:
		if c.References {
			return c.prepareReferences(value)
		}
		return c.prepareHstore(value)
	}
	return value, nil
}

func (c ColumnType) prepareArray(value interface{}) (interface{}, error) {
	switch value.(type) {
	case nil, string, []byte, driver.Valuer:
		return value, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		literal, err := arrayLiteral(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, c, err)
		}
		return literal, nil
	case reflect.Ptr:
		if rv.IsNil() {
			return value, nil
		}
		return c.prepareArray(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T is not a valid %s value", ErrInvalidValue, value, c)
}

func (c ColumnType) prepareHstore(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string, []byte:
		return v, nil
	}
	if h, ok := toHstore(value); ok {
		if h == nil {
			return nil, nil
		}
		return h, nil
	}
	return nil, fmt.Errorf("%w: %T is not a valid hstore value", ErrInvalidValue, value)
}

func (c ColumnType) prepareReferences(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return Hstore{}, nil
	case References:
		return SerializeReferences(v), nil
	case map[string]Reference:
		return SerializeReferences(v), nil
	case *ReferenceDictionary:
		if v == nil {
			return Hstore{}, nil
		}
		return SerializeReferences(v.References), nil
	}
	return c.prepareHstore(value)
}

// Parse converts a value read from the database. Arrays are normalized so
// that raw bytes become strings at every nesting level; hstore text is
// decoded into Hstore, or References for reference columns.
func (c ColumnType) Parse(raw interface{}) (interface{}, error) {
	switch c.Kind {
	case StorageArray:
		return normalizeArray(raw), nil
	case StorageHstore:
		var h Hstore
		if err := h.Scan(raw); err != nil {
			return nil, err
		}
		if c.References {
			if h == nil {
				return References{}, nil
			}
			return DeserializeReferences(h)
		}
		return h, nil
	}
	return raw, nil
}

func normalizeArray(raw interface{}) interface{} {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = normalizeArray(v[i])
		}
		return out
	}
	return raw
}

// DecodeValue converts one hstore value into the field's element value:
// text for plain hstore columns, a Reference for reference columns. NULL
// decodes to nil.
func (c ColumnType) DecodeValue(value *string) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if c.References {
		return DeserializeReference(*value)
	}
	return *value, nil
}

// dataType returns the column definition used by Schema.
func (c ColumnType) dataType(null bool) (dataType string) {
	switch c.Kind {
	case StorageArray:
		dataType = c.String() + " DEFAULT '{}'"
	case StorageHstore:
		dataType = "hstore DEFAULT ''::hstore"
	default:
		return
	}
	if !null {
		dataType += " NOT NULL"
	}
	return
}
