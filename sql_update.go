package psqlx

import (
	"fmt"
	"strings"
)

type (
	// UpdateSQL can be created with Model.NewSQL().AsUpdate()
	UpdateSQL struct {
		*SQL
		sqlConditions
		changes          []interface{}
		outputExpression string
	}
)

// Convert SQL to UpdateSQL. The optional changes will be used in the SET
// clause.
func (s SQL) AsUpdate(changes ...interface{}) *UpdateSQL {
	u := &UpdateSQL{
		SQL:     &s,
		changes: changes,
	}
	u.SQL.main = u
	return u
}

// Update builds an UPDATE statement with fields and values in the changes.
//
//	var rowsAffected int
//	m.Update(changes...).Where("user_id = $1", 1).MustExecute(&rowsAffected)
//
// Changes can be a list of field name and value pairs and can also be obtained
// from methods like Changes(), FieldChanges().
//
//	m.Update("FieldA", 123, "FieldB", "other").MustExecute()
//
// Values of array and hstore fields are converted by the column type of the
// field (see ColumnType.Prepare()), an invalid value is returned as error by
// Execute().
func (m Model) Update(lotsOfChanges ...interface{}) *UpdateSQL {
	return m.NewSQL("").AsUpdate(lotsOfChanges...)
}

// Adds RETURNING clause to UPDATE statement.
func (s *UpdateSQL) Returning(expressions ...string) *UpdateSQL {
	s.outputExpression = strings.Join(expressions, ", ")
	return s
}

// Adds condition to UPDATE statement. Arguments should use positonal
// parameters like $1, $2. If only one argument is provided, "$?" in the
// condition will be replaced with the correct positonal parameter.
func (s *UpdateSQL) Where(condition string, args ...interface{}) *UpdateSQL {
	s.sqlConditions.where(condition, args...)
	return s
}

// WHERE adds conditions to UPDATE statement from field, lookup, operand
// tuples. See SelectSQL.WHERE().
func (s *UpdateSQL) WHERE(args ...interface{}) *UpdateSQL {
	s.sqlConditions.lower(*s.model, args)
	return s
}

// Perform operations on the chain.
func (s *UpdateSQL) Tap(funcs ...func(*UpdateSQL) *UpdateSQL) *UpdateSQL {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

func (s *UpdateSQL) String() string {
	sql, _ := s.StringValues()
	return sql
}

func (s *UpdateSQL) StringValues() (string, []interface{}) {
	sql, values, _ := s.compile()
	return sql, values
}

// Err returns the first error of WHERE() or of the changes.
func (s *UpdateSQL) Err() error {
	_, _, err := s.compile()
	return err
}

func (s *UpdateSQL) compile() (string, []interface{}, error) {
	err := s.err
	fields := []string{}
	fieldsIndex := map[string][2]int{} // positions in fields and values
	values := []interface{}{}
	values = append(values, s.args...)
	i := len(s.args) + 1
	all, cerr := s.model.getChanges(s.changes)
	if err == nil {
		err = cerr
	}
	for _, changes := range all {
		for field, value := range changes {
			value, perr := prepareChange(field, value)
			if perr != nil {
				if err == nil {
					err = perr
				}
				continue
			}
			if s, ok := value.(String); ok {
				fields = append(fields, fmt.Sprintf("%s = %s", field.ColumnName, s))
				continue
			}
			if idx, ok := fieldsIndex[field.Name]; ok { // prevent duplication
				switch v := value.(type) {
				case stringWithArg:
					str := strings.Replace(v.str, "$?", fmt.Sprintf("$%d", idx[1]+1), -1)
					fields[idx[0]] = fmt.Sprintf("%s = %s", field.ColumnName, str)
					values[idx[1]] = v.arg
				default:
					fields[idx[0]] = fmt.Sprintf("%s = $%d", field.ColumnName, idx[1]+1)
					values[idx[1]] = v
				}
				continue
			}
			switch v := value.(type) {
			case stringWithArg:
				str := strings.Replace(v.str, "$?", fmt.Sprintf("$%d", i), -1)
				fieldsIndex[field.Name] = [2]int{len(fields), i - 1}
				fields = append(fields, fmt.Sprintf("%s = %s", field.ColumnName, str))
				values = append(values, v.arg)
				i += 1
			default:
				fieldsIndex[field.Name] = [2]int{len(fields), i - 1}
				fields = append(fields, fmt.Sprintf("%s = $%d", field.ColumnName, i))
				values = append(values, v)
				i += 1
			}
		}
	}
	var sql string
	if s.sql != "" {
		sql = s.sql
		for _, v := range s.values {
			sql = strings.Replace(sql, "$?", fmt.Sprintf("$%d", i), 1)
			i += 1
			values = append(values, v)
		}
	} else if len(fields) > 0 {
		sql = "UPDATE " + s.model.tableName + " SET " + strings.Join(fields, ", ")
	}
	if sql != "" {
		sql += s.whereClause()
		if s.outputExpression != "" {
			sql += " RETURNING " + s.outputExpression
		}
	} else {
		values = nil
	}
	sql, values = s.model.convertValues(sql, values)
	return sql, values, err
}
