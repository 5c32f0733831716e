package psqlx

import (
	"strings"
)

type (
	// DeleteSQL can be created with Model.NewSQL().AsDelete()
	DeleteSQL struct {
		*SQL
		sqlConditions
		usingList        string
		outputExpression string
	}
)

// Convert SQL to DeleteSQL.
func (s SQL) AsDelete() *DeleteSQL {
	d := &DeleteSQL{
		SQL: &s,
	}
	d.SQL.main = d
	d.SQL.sql = d.numberFragment(s.sql, s.values)
	return d
}

// Delete builds a DELETE statement. You can add extra clause (like WHERE,
// RETURNING) to the statement as the first argument. The rest arguments are
// for any placeholder parameters in the statement.
//
//	var ids []int
//	psqlx.NewModelTable("reports", conn).Delete().Returning("id").MustQuery(&ids)
func (m Model) Delete() *DeleteSQL {
	return m.NewSQL("").AsDelete()
}

// Adds condition to DELETE FROM statement. Arguments should use positonal
// parameters like $1, $2. If only one argument is provided, "$?" in the
// condition will be replaced with the correct positonal parameter.
func (s *DeleteSQL) Where(condition string, args ...interface{}) *DeleteSQL {
	s.sqlConditions.where(condition, args...)
	return s
}

// WHERE adds conditions to DELETE statement from field, lookup, operand
// tuples. See SelectSQL.WHERE().
func (s *DeleteSQL) WHERE(args ...interface{}) *DeleteSQL {
	s.sqlConditions.lower(*s.model, args)
	return s
}

// Adds USING clause to DELETE FROM statement.
func (s *DeleteSQL) Using(list ...string) *DeleteSQL {
	s.usingList = strings.Join(list, ", ")
	return s
}

// Adds RETURNING clause to DELETE FROM statement.
func (s *DeleteSQL) Returning(expressions ...string) *DeleteSQL {
	s.outputExpression = strings.Join(expressions, ", ")
	return s
}

// Perform operations on the chain.
func (s *DeleteSQL) Tap(funcs ...func(*DeleteSQL) *DeleteSQL) *DeleteSQL {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

func (s *DeleteSQL) String() string {
	var sql string
	if s.sql != "" {
		sql = s.sql
	} else {
		sql = "DELETE FROM " + s.model.tableName
	}
	if sql != "" {
		if s.usingList != "" {
			sql += " USING " + s.usingList
		}
		sql += s.whereClause()
		if s.outputExpression != "" {
			sql += " RETURNING " + s.outputExpression
		}
	}
	return sql
}

func (s *DeleteSQL) StringValues() (string, []interface{}) {
	return s.model.convertValues(s.String(), s.args)
}

// Err returns the first error of WHERE().
func (s *DeleteSQL) Err() error {
	return s.err
}

func (s *DeleteSQL) compile() (string, []interface{}, error) {
	sql, values := s.StringValues()
	return sql, values, s.err
}
