package psqlx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gopsql/db"
)

// hstoreField returns the hstore field of the model by field or column name.
func (m Model) hstoreField(name string) (*Field, error) {
	field := m.fieldFor(name)
	if field == nil {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrUnsupportedLookup, m.tableName, name)
	}
	if field.Type.Kind != StorageHstore {
		return nil, fmt.Errorf("%w: %s.%s is not an hstore column", ErrUnsupportedLookup, m.tableName, field.ColumnName)
	}
	return field, nil
}

// HKeys returns the keys of the hstore field of all rows. See SelectSQL.HKeys().
func (m Model) HKeys(field string) ([]string, error) {
	return m.newSelect().HKeys(field)
}

// HPeek returns the value of key in the hstore field. See SelectSQL.HPeek().
func (m Model) HPeek(field, key string) (interface{}, error) {
	return m.newSelect().HPeek(field, key)
}

// HSlice returns the entries of keys in the hstore field. See
// SelectSQL.HSlice().
func (m Model) HSlice(field string, keys ...string) (map[string]interface{}, error) {
	return m.newSelect().HSlice(field, keys...)
}

// HUpdate merges entries into the hstore field of all rows. See
// SelectSQL.HUpdate().
func (m Model) HUpdate(field string, entries interface{}) *UpdateSQL {
	return m.newSelect().HUpdate(field, entries)
}

// HRemove deletes keys from the hstore field of all rows. See
// SelectSQL.HRemove().
func (m Model) HRemove(field string, keys ...string) *UpdateSQL {
	return m.newSelect().HRemove(field, keys...)
}

// HKeys returns the keys of the hstore field of the first row matching the
// conditions. The query s is not changed and can be used again. An empty slice is returned if no row matches or the column is
// NULL.
//
//	keys, err := users.Where("id = $1", 1).HKeys("Tags")
//	// SELECT akeys(tags) FROM users WHERE id = $1 LIMIT 1
func (s *SelectSQL) HKeys(field string) ([]string, error) {
	return s.HKeysCtxTx(context.Background(), nil, field)
}

// HKeysCtxTx is like HKeys but runs in the transaction if tx is not nil.
func (s *SelectSQL) HKeysCtxTx(ctx context.Context, tx db.Tx, field string) ([]string, error) {
	f, err := s.model.hstoreField(field)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = s.clone().ResetSelect("akeys("+f.ColumnName+")").Limit(1).QueryRowCtxTx(ctx, tx, arrayScanner{&keys})
	if err != nil && !s.noRows(err) {
		return nil, err
	}
	if keys == nil {
		return []string{}, nil
	}
	return keys, nil
}

// HPeek returns the value of key in the hstore field of the first row
// matching the conditions. Nil is returned if there is no such key or the
// value is NULL. Values of References fields are returned as Reference.
//
//	value, err := users.Where("id = $1", 1).HPeek("Tags", "color")
//	// SELECT tags -> $2::text FROM users WHERE id = $1 LIMIT 1
func (s *SelectSQL) HPeek(field, key string) (interface{}, error) {
	return s.HPeekCtxTx(context.Background(), nil, field, key)
}

// HPeekCtxTx is like HPeek but runs in the transaction if tx is not nil.
func (s *SelectSQL) HPeekCtxTx(ctx context.Context, tx db.Tx, field, key string) (interface{}, error) {
	f, err := s.model.hstoreField(field)
	if err != nil {
		return nil, err
	}
	var value sql.NullString
	q := s.clone()
	expr := q.numberFragment(f.ColumnName+" -> $?::text", []interface{}{key})
	err = q.ResetSelect(expr).Limit(1).QueryRowCtxTx(ctx, tx, &value)
	if err != nil {
		if s.noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if !value.Valid {
		return nil, nil
	}
	return f.Type.DecodeValue(&value.String)
}

// HSlice returns the entries of keys in the hstore field of the first row
// matching the conditions. Keys that do not exist are left out. Values of
// References fields are returned as Reference, NULL values as nil.
//
//	entries, err := users.Where("id = $1", 1).HSlice("Tags", "color", "size")
//	// SELECT slice(tags, $2::text[]) FROM users WHERE id = $1 LIMIT 1
func (s *SelectSQL) HSlice(field string, keys ...string) (map[string]interface{}, error) {
	return s.HSliceCtxTx(context.Background(), nil, field, keys...)
}

// HSliceCtxTx is like HSlice but runs in the transaction if tx is not nil.
func (s *SelectSQL) HSliceCtxTx(ctx context.Context, tx db.Tx, field string, keys ...string) (map[string]interface{}, error) {
	f, err := s.model.hstoreField(field)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if len(keys) == 0 {
		return out, nil
	}
	var h Hstore
	q := s.clone()
	expr := q.numberFragment("slice("+f.ColumnName+", $?::text[])", []interface{}{textArray(keys)})
	err = q.ResetSelect(expr).Limit(1).QueryRowCtxTx(ctx, tx, &h)
	if err != nil {
		if s.noRows(err) {
			return out, nil
		}
		return nil, err
	}
	for key, value := range h {
		v, err := f.Type.DecodeValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// HUpdate merges entries into the hstore field of every row matching the
// conditions. Existing keys are overwritten, a NULL column is treated as
// empty. Entries can be any mapping accepted by ColumnType.Prepare(). No
// statement is executed if entries is empty.
//
//	users.Where("id = $1", 1).HUpdate("Tags", map[string]string{"color": "red"}).MustExecute()
//	// UPDATE users SET tags = COALESCE(tags, ''::hstore) || $2::hstore WHERE id = $1
func (s *SelectSQL) HUpdate(field string, entries interface{}) *UpdateSQL {
	f, err := s.model.hstoreField(field)
	if err != nil {
		return s.failedUpdate(err)
	}
	value, err := f.Type.Prepare(entries)
	if err != nil {
		return s.failedUpdate(err)
	}
	if h, ok := value.(Hstore); (ok && len(h) == 0) || value == nil {
		return s.Update()
	}
	expr := "COALESCE(" + f.ColumnName + ", ''::hstore) || $?::hstore"
	return s.Update(f.Name, StringWithArg(expr, value))
}

// HRemove deletes keys from the hstore field of every row matching the
// conditions. No statement is executed if there are no keys.
//
//	users.Where("id = $1", 1).HRemove("Tags", "color").MustExecute()
//	// UPDATE users SET tags = delete(tags, $2::text[]) WHERE id = $1
func (s *SelectSQL) HRemove(field string, keys ...string) *UpdateSQL {
	f, err := s.model.hstoreField(field)
	if err != nil {
		return s.failedUpdate(err)
	}
	if len(keys) == 0 {
		return s.Update()
	}
	expr := "delete(" + f.ColumnName + ", $?::text[])"
	return s.Update(f.Name, StringWithArg(expr, textArray(keys)))
}

func (s *SelectSQL) failedUpdate(err error) *UpdateSQL {
	u := s.Update()
	if u.err == nil {
		u.err = err
	}
	return u
}

func (s *SelectSQL) noRows(err error) bool {
	return s.model.connection != nil && err == s.model.connection.ErrNoRows()
}
