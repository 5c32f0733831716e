package psqlx

import (
	"fmt"
	"sync"
)

type (
	// PredicateLowerer turns one WHERE predicate into an SQL fragment. The
	// fragment uses "$?" for each of its arguments, in order; the builder
	// replaces them with positional parameters. Field is nil if the column
	// is not a field of the model.
	PredicateLowerer interface {
		LowerPredicate(column string, field *Field, lookup string, operand interface{}) (string, []interface{}, error)
	}

	// PredicateLowererFunc adapts a function to PredicateLowerer.
	PredicateLowererFunc func(column string, field *Field, lookup string, operand interface{}) (string, []interface{}, error)

	operatorLowerer struct{}

	hstoreLowerer struct{}
)

// Lookups understood by hstore columns.
const (
	LookupExact    = "exact"
	LookupContains = "contains"
)

var (
	lowerersMu sync.RWMutex
	lowerers   = map[StorageKind]PredicateLowerer{
		StorageScalar: operatorLowerer{},
		StorageArray:  operatorLowerer{},
		StorageHstore: hstoreLowerer{},
	}
)

func (f PredicateLowererFunc) LowerPredicate(column string, field *Field, lookup string, operand interface{}) (string, []interface{}, error) {
	return f(column, field, lookup, operand)
}

// RegisterPredicateLowerer sets the lowerer used by WHERE for columns of the
// given storage kind. It is meant to be called during program setup.
func RegisterPredicateLowerer(kind StorageKind, l PredicateLowerer) {
	lowerersMu.Lock()
	defer lowerersMu.Unlock()
	lowerers[kind] = l
}

func lowererFor(kind StorageKind) PredicateLowerer {
	lowerersMu.RLock()
	defer lowerersMu.RUnlock()
	if l, ok := lowerers[kind]; ok {
		return l
	}
	return operatorLowerer{}
}

// lowerPredicate compiles one field/lookup/operand tuple of WHERE().
func (m Model) lowerPredicate(name, lookup string, operand interface{}) (string, []interface{}, error) {
	field := m.fieldFor(name)
	column := m.ToColumnName(name)
	kind := StorageScalar
	if field != nil {
		column = field.ColumnName
		kind = field.Type.Kind
	}
	return lowererFor(kind).LowerPredicate(column, field, lookup, operand)
}

// "<column> <operator> $n", the operator is used as is.
func (operatorLowerer) LowerPredicate(column string, _ *Field, operator string, operand interface{}) (string, []interface{}, error) {
	return column + " " + operator + " $?", []interface{}{operand}, nil
}

func (hstoreLowerer) LowerPredicate(column string, field *Field, lookup string, operand interface{}) (string, []interface{}, error) {
	var columnType ColumnType
	if field != nil {
		columnType = field.Type
	}
	switch lookup {
	case LookupExact, "=":
		if h, ok := hstoreOperand(columnType, operand); ok {
			return column + " = $?::hstore", []interface{}{h}, nil
		}
		return "", nil, fmt.Errorf("%w: %s %s expects a mapping, got %T", ErrInvalidLookup, column, lookup, operand)
	case LookupContains, "@>":
		if h, ok := hstoreOperand(columnType, operand); ok {
			return column + " @> $?::hstore", []interface{}{h}, nil
		}
		switch v := operand.(type) {
		case string:
			return column + " ? $?", []interface{}{v}, nil
		case []string, []interface{}:
			keys, ok := stringSlice(v)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s %s expects string keys", ErrInvalidLookup, column, lookup)
			}
			if len(keys) == 0 {
				return "", nil, fmt.Errorf("%w: %s %s with no keys", ErrInvalidLookup, column, lookup)
			}
			return column + " ?& $?::text[]", []interface{}{textArray(keys)}, nil
		}
		return "", nil, fmt.Errorf("%w: %s %s does not accept %T", ErrInvalidLookup, column, lookup, operand)
	}
	return "", nil, fmt.Errorf("%w: %q on hstore column %s", ErrUnsupportedLookup, lookup, column)
}

// hstoreOperand converts a mapping operand, serializing references for
// reference columns.
func hstoreOperand(columnType ColumnType, operand interface{}) (Hstore, bool) {
	if columnType.References {
		switch v := operand.(type) {
		case References:
			return SerializeReferences(v), true
		case map[string]Reference:
			return SerializeReferences(v), true
		case *ReferenceDictionary:
			if v == nil {
				return Hstore{}, true
			}
			return SerializeReferences(v.References), true
		}
	}
	h, ok := toHstore(operand)
	if ok && h == nil {
		h = Hstore{}
	}
	return h, ok
}

func stringSlice(in interface{}) ([]string, bool) {
	switch v := in.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
