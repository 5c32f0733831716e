package psqlx

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gopsql/db"
)

type (
	// Reference points to a row of another model. Type is the tag the
	// model is registered with in a ReferenceResolver (its table name by
	// default), Id is the primary key formatted as text.
	Reference struct {
		Type string
		Id   string
	}

	// References is the value of an hstore column whose values are
	// references to other rows. Each reference is stored as "type:id".
	References map[string]Reference

	// ReferenceResolver looks up the rows references point to.
	ReferenceResolver struct {
		mu     sync.RWMutex
		models map[string]*Model
	}
)

const referenceSeparator = ":"

// NewReference creates a reference from a type tag and a primary key value.
func NewReference(typeTag string, id interface{}) Reference {
	return Reference{Type: typeTag, Id: fmt.Sprint(id)}
}

func (r Reference) String() string {
	return SerializeReference(r)
}

// SerializeReference encodes a reference as "type:id".
func SerializeReference(r Reference) string {
	return r.Type + referenceSeparator + r.Id
}

// DeserializeReference decodes text produced by SerializeReference.
func DeserializeReference(s string) (Reference, error) {
	idx := strings.Index(s, referenceSeparator)
	if idx < 1 || idx == len(s)-1 {
		return Reference{}, fmt.Errorf("%w: malformed reference %q", ErrUnresolvableReference, s)
	}
	return Reference{Type: s[:idx], Id: s[idx+1:]}, nil
}

// SerializeReferences encodes every reference. Nil or empty input gives an
// empty (not NULL) hstore.
func SerializeReferences(refs References) Hstore {
	h := make(Hstore, len(refs))
	for key, ref := range refs {
		h.Set(key, SerializeReference(ref))
	}
	return h
}

// DeserializeReferences decodes every value of h. A NULL or malformed value
// is an error.
func DeserializeReferences(h Hstore) (References, error) {
	refs := make(References, len(h))
	for key, value := range h {
		if value == nil {
			return nil, fmt.Errorf("%w: key %q has no value", ErrUnresolvableReference, key)
		}
		ref, err := DeserializeReference(*value)
		if err != nil {
			return nil, err
		}
		refs[key] = ref
	}
	return refs, nil
}

func (r *References) Scan(src interface{}) error {
	var h Hstore
	if err := h.Scan(src); err != nil {
		return err
	}
	refs, err := DeserializeReferences(h)
	if err != nil {
		return err
	}
	*r = refs
	return nil
}

func (r References) Value() (driver.Value, error) {
	return SerializeReferences(r).Value()
}

// Keys returns all keys in sorted order.
func (r References) Keys() []string {
	return SerializeReferences(r).Keys()
}

// NewReferenceResolver creates a resolver with models registered under their
// table names.
func NewReferenceResolver(models ...*Model) *ReferenceResolver {
	r := &ReferenceResolver{models: map[string]*Model{}}
	for _, m := range models {
		r.Register(m.TableName(), m)
	}
	return r
}

// Register adds a model under a type tag. Tags must not contain ":".
func (r *ReferenceResolver) Register(typeTag string, m *Model) *ReferenceResolver {
	if typeTag == "" || strings.Contains(typeTag, referenceSeparator) {
		panic("psqlx: invalid reference type tag " + typeTag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[typeTag] = m
	return r
}

func (r *ReferenceResolver) model(typeTag string) *Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[typeTag]
}

// Reference creates a reference to row, which must be a struct (or pointer
// to a struct) of a registered model.
func (r *ReferenceResolver) Reference(row interface{}) (Reference, error) {
	rt := reflect.TypeOf(row)
	if rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for tag, m := range r.models {
		if m.structType == nil || m.structType != rt {
			continue
		}
		id, ok := m.primaryKeyValue(reflect.Indirect(reflect.ValueOf(row)))
		if !ok {
			return Reference{}, fmt.Errorf("%w: %s row has no primary key", ErrInvalidValue, tag)
		}
		return NewReference(tag, id), nil
	}
	return Reference{}, fmt.Errorf("%w: %T is not a registered model", ErrInvalidValue, row)
}

// Resolve loads the row ref points to into target, which must be a pointer
// to a struct.
func (r *ReferenceResolver) Resolve(ref Reference, target interface{}) error {
	return r.ResolveCtxTx(context.Background(), nil, ref, target)
}

// ResolveCtxTx is like Resolve but runs in the given transaction, which can
// be nil.
func (r *ReferenceResolver) ResolveCtxTx(ctx context.Context, tx db.Tx, ref Reference, target interface{}) error {
	m := r.model(ref.Type)
	if m == nil {
		return fmt.Errorf("%w: unknown type %q", ErrUnresolvableReference, ref.Type)
	}
	pk := m.PrimaryKey()
	if pk == nil {
		return fmt.Errorf("%w: %s has no primary key", ErrUnresolvableReference, ref.Type)
	}
	err := m.Find().Where(pk.ColumnName+" = $1", ref.Id).QueryCtxTx(ctx, tx, target)
	if err != nil && m.connection != nil && err == m.connection.ErrNoRows() {
		return fmt.Errorf("%w: %s not found", ErrUnresolvableReference, ref)
	}
	return err
}
