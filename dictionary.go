package psqlx

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gopsql/db"
)

type (
	// Dictionary is the Hstore of a row. It remembers the model, the field
	// and the primary key of the row it was obtained from, so Remove() can
	// delete keys from that row only. Dictionary shares its map with the
	// struct field it was obtained from.
	Dictionary struct {
		Hstore
		binding
	}

	// ReferenceDictionary is like Dictionary for References fields.
	ReferenceDictionary struct {
		References
		binding
	}

	binding struct {
		model  *Model
		field  Field
		id     interface{}
		strict bool
	}
)

// NewDictionary creates an unbound Dictionary, Remove() only changes the map.
func NewDictionary(h Hstore) *Dictionary {
	if h == nil {
		h = Hstore{}
	}
	return &Dictionary{Hstore: h}
}

// Dictionary binds the Hstore field of a row. Row must be a pointer to a
// struct of the model type. The field can be Hstore, *Hstore or a
// map[string]*string tagged `dataType:"hstore"`; a map[string]string field
// cannot share its map and is rejected. A nil map is initialized and stored back into the
// struct. If the primary key of the row is zero, the Dictionary is unbound.
//
//	var user User
//	users.Find().Where("id = $1", 1).MustQuery(&user)
//	tags, err := users.Dictionary(&user, "Tags")
//	tags.MustRemove("color")
//	// UPDATE users SET tags = delete(tags, $2::text[]) WHERE id = $1
func (m Model) Dictionary(row interface{}, fieldName string) (*Dictionary, error) {
	rv, field, err := m.bindableField(row, fieldName)
	if err != nil {
		return nil, err
	}
	if field.Type.References {
		return nil, fmt.Errorf("%w: %s is a References field, use ReferenceDictionary", ErrInvalidValue, field.Name)
	}
	var h Hstore
	switch ptr := field.getFieldValueAddrFromStruct(rv).(type) {
	case *Hstore:
		if *ptr == nil {
			*ptr = Hstore{}
		}
		h = *ptr
	case **Hstore:
		if *ptr == nil {
			*ptr = &Hstore{}
		}
		if **ptr == nil {
			**ptr = Hstore{}
		}
		h = **ptr
	case *map[string]*string:
		if *ptr == nil {
			*ptr = map[string]*string{}
		}
		h = *ptr
	default:
		return nil, fmt.Errorf("%w: %s is %T, not Hstore", ErrInvalidValue, field.Name, ptr)
	}
	return &Dictionary{Hstore: h, binding: m.bind(rv, *field)}, nil
}

// ReferenceDictionary binds the References field of a row, see Dictionary().
func (m Model) ReferenceDictionary(row interface{}, fieldName string) (*ReferenceDictionary, error) {
	rv, field, err := m.bindableField(row, fieldName)
	if err != nil {
		return nil, err
	}
	var refs References
	switch ptr := field.getFieldValueAddrFromStruct(rv).(type) {
	case *References:
		if *ptr == nil {
			*ptr = References{}
		}
		refs = *ptr
	case **References:
		if *ptr == nil {
			*ptr = &References{}
		}
		if **ptr == nil {
			**ptr = References{}
		}
		refs = **ptr
	default:
		return nil, fmt.Errorf("%w: %s is %T, not References", ErrInvalidValue, field.Name, ptr)
	}
	return &ReferenceDictionary{References: refs, binding: m.bind(rv, *field)}, nil
}

func (m Model) bindableField(row interface{}, fieldName string) (reflect.Value, *Field, error) {
	rv := reflect.ValueOf(row)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, nil, ErrMustBePointer
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct || (m.structType != nil && rv.Type() != m.structType) {
		return reflect.Value{}, nil, fmt.Errorf("%w: %s is not a row of %s", ErrInvalidValue, rv.Type(), m.tableName)
	}
	field, err := m.hstoreField(fieldName)
	if err != nil {
		return reflect.Value{}, nil, fmt.Errorf("%w: %s", ErrInvalidValue, err)
	}
	return rv, field, nil
}

func (m Model) bind(rv reflect.Value, field Field) binding {
	b := binding{model: &m, field: field}
	if id, ok := m.primaryKeyValue(rv); ok {
		b.id = id
	}
	return b
}

// Bound returns true if the mapping belongs to a row with a primary key.
func (b binding) Bound() bool {
	return b.model != nil && b.id != nil
}

// remove runs the UPDATE deleting keys from the column of the bound row.
func (b binding) remove(ctx context.Context, tx db.Tx, keys []string) error {
	if !b.Bound() {
		if b.strict {
			return fmt.Errorf("%w: %s has no primary key", ErrUnboundMapping, b.field.Name)
		}
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	pk := b.model.PrimaryKey()
	return b.model.Where(pk.ColumnName+" = $1", b.id).HRemove(b.field.Name, keys...).ExecuteCtxTx(ctx, tx)
}

// Strict makes Remove() return ErrUnboundMapping instead of changing only
// the map when there is no row to update.
func (d *Dictionary) Strict() *Dictionary {
	d.strict = true
	return d
}

// MustRemove is like Remove but panics if remove operation fails.
func (d *Dictionary) MustRemove(keys ...string) {
	if err := d.Remove(keys...); err != nil {
		panic(err)
	}
}

// Remove deletes keys from the map and, if bound, from the column of the
// row with one UPDATE statement.
func (d *Dictionary) Remove(keys ...string) error {
	return d.RemoveCtxTx(context.Background(), nil, keys...)
}

// RemoveCtxTx is like Remove but runs in the transaction if tx is not nil.
// The map is not changed if the statement fails.
func (d *Dictionary) RemoveCtxTx(ctx context.Context, tx db.Tx, keys ...string) error {
	if err := d.remove(ctx, tx, keys); err != nil {
		return err
	}
	for _, key := range keys {
		delete(d.Hstore, key)
	}
	return nil
}

// Strict makes Remove() return ErrUnboundMapping instead of changing only
// the map when there is no row to update.
func (d *ReferenceDictionary) Strict() *ReferenceDictionary {
	d.strict = true
	return d
}

// MustRemove is like Remove but panics if remove operation fails.
func (d *ReferenceDictionary) MustRemove(keys ...string) {
	if err := d.Remove(keys...); err != nil {
		panic(err)
	}
}

// Remove deletes keys from the map and, if bound, from the column of the
// row with one UPDATE statement.
func (d *ReferenceDictionary) Remove(keys ...string) error {
	return d.RemoveCtxTx(context.Background(), nil, keys...)
}

// RemoveCtxTx is like Remove but runs in the transaction if tx is not nil.
func (d *ReferenceDictionary) RemoveCtxTx(ctx context.Context, tx db.Tx, keys ...string) error {
	if err := d.remove(ctx, tx, keys); err != nil {
		return err
	}
	for _, key := range keys {
		delete(d.References, key)
	}
	return nil
}
