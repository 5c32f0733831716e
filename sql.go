package psqlx

import (
	"context"
	"database/sql"
	"reflect"
	"strings"

	"github.com/gopsql/db"
)

type (
	// SQL can be created with Model.NewSQL()
	SQL struct {
		main   statement
		model  *Model
		sql    string
		values []interface{}
	}

	// statement compiles to SQL and its arguments. The error is the first
	// problem found while building the statement, like an invalid lookup.
	statement interface {
		compile() (string, []interface{}, error)
	}
)

// Create new SQL with SQL statement as first argument, The rest
// arguments are for any placeholder parameters in the statement.
func (m Model) NewSQL(sql string, values ...interface{}) *SQL {
	return &SQL{
		model:  &m,
		sql:    strings.TrimSpace(sql),
		values: values,
	}
}

func (s SQL) compile() (string, []interface{}, error) {
	if s.main != nil {
		return s.main.compile()
	}
	sql, values := s.model.convertValues(s.sql, s.values)
	return sql, values, nil
}

func (s SQL) String() string {
	sql, _, _ := s.compile()
	return sql
}

// StringValues returns the SQL statement and its arguments.
func (s SQL) StringValues() (string, []interface{}) {
	sql, values, _ := s.compile()
	return sql, values
}

// Err returns the error found while building the statement, if any. Query,
// QueryRow and Execute return it without sending anything to the database.
func (s SQL) Err() error {
	_, _, err := s.compile()
	return err
}

// MustQuery is like Query but panics if query operation fails.
func (s SQL) MustQuery(target interface{}) {
	if err := s.Query(target); err != nil {
		panic(err)
	}
}

// Query executes the SQL query and put the results into the target.
// Target must be a pointer to a struct or a slice.
func (s SQL) Query(target interface{}) error {
	return s.QueryCtxTx(context.Background(), nil, target)
}

// MustQueryCtxTx is like QueryCtxTx but panics if query operation fails.
func (s SQL) MustQueryCtxTx(ctx context.Context, tx db.Tx, target interface{}) {
	if err := s.QueryCtxTx(ctx, tx, target); err != nil {
		panic(err)
	}
}

// QueryCtxTx executes the SQL query and put the results into the target.
// Target must be a pointer to a struct or a slice. Array columns are scanned
// as text (lib/pq) or binary (pgx) arrays, hstore columns through Hstore.
func (s SQL) QueryCtxTx(ctx context.Context, tx db.Tx, target interface{}) error {
	sqlQuery, values, err := s.compile()
	if err != nil {
		return err
	}
	if sqlQuery == "" {
		return nil
	}
	if s.model.connection == nil {
		return ErrNoConnection
	}

	rt := reflect.TypeOf(target)
	if rt == nil || rt.Kind() != reflect.Ptr {
		return ErrInvalidTarget
	}
	rv := reflect.Indirect(reflect.ValueOf(target))
	rt = rt.Elem()

	kind := rt.Kind()
	if kind == reflect.Slice {
		rt = rt.Elem()
	}

	var mi *modelInfo
	if s.model.structType != nil && rt == s.model.structType {
		// use model's existing info if type is the same
		mi = s.model.modelInfo
	} else {
		// different type of struct
		mi = &modelInfo{tableName: s.model.tableName}
		mi.modelFields = parseStruct(rt, s.model.columnNamer)
	}

	if kind == reflect.Struct { // if target is not a slice, use QueryRow instead
		s.log(sqlQuery, values)
		if tx != nil {
			return mi.scan(rv, tx.QueryRowContext(ctx, sqlQuery, values...))
		}
		return mi.scan(rv, s.model.connection.QueryRow(sqlQuery, values...))
	} else if kind != reflect.Slice {
		return ErrInvalidTarget
	}

	s.log(sqlQuery, values)
	var rows db.Rows
	if tx != nil {
		rows, err = tx.QueryContext(ctx, sqlQuery, values...)
	} else {
		rows, err = s.model.connection.Query(sqlQuery, values...)
	}
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		nv := reflect.New(rt).Elem()
		if err := mi.scan(nv, rows); err != nil {
			return err
		}
		rv.Set(reflect.Append(rv, nv))
	}
	return rows.Err()
}

// scan a scannable (Row or Rows) into every field of a struct
func (mi *modelInfo) scan(rv reflect.Value, scannable db.Scannable) error {
	if rv.Kind() != reflect.Struct || len(mi.modelFields) == 0 {
		return scannable.Scan(rv.Addr().Interface())
	}
	dests := make([]interface{}, 0, len(mi.modelFields))
	for _, field := range mi.modelFields {
		pointer := field.getFieldValueAddrFromStruct(rv)
		switch field.Type.Kind {
		case StorageArray:
			if isArrayTarget(reflect.TypeOf(pointer).Elem()) {
				pointer = arrayScanner{pointer}
			}
		case StorageHstore:
			if _, ok := pointer.(sql.Scanner); !ok {
				pointer = hstoreScanner{pointer}
			}
		}
		dests = append(dests, pointer)
	}
	return scannable.Scan(dests...)
}

// MustQueryRow is like QueryRow but panics if query row operation fails.
func (s SQL) MustQueryRow(dest ...interface{}) {
	if err := s.QueryRow(dest...); err != nil {
		panic(err)
	}
}

// QueryRow gets results from the first row, and put values of each column to
// corresponding dest.
//
//	var u struct {
//		name string
//		id   int
//	}
//	psqlx.NewModelTable("users", conn).Select("name, id").MustQueryRow(&u.name, &u.id)
func (s SQL) QueryRow(dest ...interface{}) error {
	return s.QueryRowCtxTx(context.Background(), nil, dest...)
}

// MustQueryRowCtxTx is like QueryRowCtxTx but panics if query row operation
// fails.
func (s SQL) MustQueryRowCtxTx(ctx context.Context, tx db.Tx, dest ...interface{}) {
	if err := s.QueryRowCtxTx(ctx, tx, dest...); err != nil {
		panic(err)
	}
}

// QueryRowCtxTx gets results from the first row, and put values of each column
// to corresponding dest.
func (s SQL) QueryRowCtxTx(ctx context.Context, tx db.Tx, dest ...interface{}) error {
	sqlQuery, values, err := s.compile()
	if err != nil {
		return err
	}
	if sqlQuery == "" {
		return nil
	}
	if s.model.connection == nil {
		return ErrNoConnection
	}
	s.log(sqlQuery, values)
	if tx != nil {
		return tx.QueryRowContext(ctx, sqlQuery, values...).Scan(dest...)
	}
	return s.model.connection.QueryRow(sqlQuery, values...).Scan(dest...)
}

// MustExecute is like Execute but panics if execute operation fails.
func (s SQL) MustExecute(dest ...interface{}) {
	if err := s.Execute(dest...); err != nil {
		panic(err)
	}
}

// Execute executes a query without returning any rows by an UPDATE, INSERT, or
// DELETE. You can get number of rows affected by providing pointer of int or
// int64 to the optional dest. An empty statement (for example HRemove
// without keys) is not sent and leaves dest untouched.
func (s SQL) Execute(dest ...interface{}) error {
	return s.ExecuteCtxTx(context.Background(), nil, dest...)
}

// MustExecuteCtxTx is like ExecuteCtxTx but panics if execute operation fails.
func (s SQL) MustExecuteCtxTx(ctx context.Context, tx db.Tx, dest ...interface{}) {
	if err := s.ExecuteCtxTx(ctx, tx, dest...); err != nil {
		panic(err)
	}
}

// ExecuteCtxTx executes a query without returning any rows by an UPDATE,
// INSERT, or DELETE. You can get number of rows affected by providing pointer
// of int or int64 to the optional dest.
func (s SQL) ExecuteCtxTx(ctx context.Context, tx db.Tx, dest ...interface{}) error {
	sqlQuery, values, err := s.compile()
	if err != nil {
		return err
	}
	if sqlQuery == "" {
		return nil
	}
	if s.model.connection == nil {
		return ErrNoConnection
	}
	s.log(sqlQuery, values)
	if tx != nil {
		return returnRowsAffected(dest)(tx.ExecContext(ctx, sqlQuery, values...))
	}
	return returnRowsAffected(dest)(s.model.connection.Exec(sqlQuery, values...))
}

func (s SQL) log(sql string, args []interface{}) {
	s.model.log(sql, args)
}

func returnRowsAffected(dest []interface{}) func(db.Result, error) error {
	return func(result db.Result, err error) error {
		if err != nil {
			return err
		}
		if len(dest) == 0 {
			return nil
		}
		ra, err := result.RowsAffected()
		if err != nil {
			return err
		}
		switch x := dest[0].(type) {
		case *int:
			*x = int(ra)
		case *int64:
			*x = ra
		}
		return nil
	}
}
