package psqlx

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

// fakeDB records statements and answers QueryRow with queued rows. Values of
// a row are given as the driver would return them as text.
type (
	fakeDB struct {
		db.DB
		statements []fakeStatement
		rows       [][]interface{}
		affected   int64
		err        error
	}

	fakeStatement struct {
		sql  string
		args []interface{}
	}

	fakeRow struct {
		db.Row
		values []interface{}
		err    error
	}

	fakeResult struct {
		db.Result
		affected int64
	}

	recordLogger struct {
		logger.Logger
		lines []string
	}
)

var errFakeNoRows = errors.New("fake: no rows in result set")

func (f *fakeDB) Exec(query string, args ...interface{}) (db.Result, error) {
	f.statements = append(f.statements, fakeStatement{query, args})
	if f.err != nil {
		return nil, f.err
	}
	return fakeResult{affected: f.affected}, nil
}

func (f *fakeDB) QueryRow(query string, args ...interface{}) db.Row {
	f.statements = append(f.statements, fakeStatement{query, args})
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	if len(f.rows) == 0 {
		return fakeRow{err: errFakeNoRows}
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return fakeRow{values: row}
}

func (f *fakeDB) ErrNoRows() error {
	return errFakeNoRows
}

func (f *fakeDB) last() fakeStatement {
	if len(f.statements) == 0 {
		return fakeStatement{}
	}
	return f.statements[len(f.statements)-1]
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("fake: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		if s, ok := d.(sql.Scanner); ok {
			if err := s.Scan(r.values[i]); err != nil {
				return err
			}
			continue
		}
		rv := reflect.ValueOf(d).Elem()
		if r.values[i] == nil {
			rv.Set(reflect.Zero(rv.Type()))
			continue
		}
		v := reflect.ValueOf(r.values[i])
		if !v.Type().ConvertibleTo(rv.Type()) {
			return fmt.Errorf("fake: cannot scan %T into %s", r.values[i], rv.Type())
		}
		rv.Set(v.Convert(rv.Type()))
	}
	return nil
}

func (r fakeResult) RowsAffected() (int64, error) {
	return r.affected, nil
}

func (l *recordLogger) Debug(args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprint(args...))
}
