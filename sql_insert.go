package psqlx

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// InsertSQL represents an INSERT statement builder. Create instances using
	// Model.Insert or SQL.AsInsert.
	InsertSQL struct {
		*SQL
		changes          []interface{}
		outputExpression string
		conflictTargets  []string
		conflictActions  []string
		updateAll        bool
		updateAllExcept  []string
	}
)

// AsInsert converts a raw SQL statement to an InsertSQL builder with the given
// changes.
func (s SQL) AsInsert(changes ...interface{}) *InsertSQL {
	i := &InsertSQL{
		SQL:     &s,
		changes: changes,
	}
	i.SQL.main = i
	return i
}

// Insert creates an INSERT statement with the given field/value changes.
// Changes can be field name and value pairs, or Changes maps from Changes()
// and FieldChanges().
//
//	// Using field/value pairs
//	users.Insert("Name", "Alice", "Tags", psqlx.NewHstore(tags)).MustExecute()
//
//	// Using Changes
//	changes := users.Changes(psqlx.RawChanges{"name": "Alice"})
//	users.Insert(changes).Returning("id").MustQueryRow(&id)
//
// Values of array and hstore fields are converted by the column type of the
// field, see ColumnType.Prepare().
func (m Model) Insert(lotsOfChanges ...interface{}) *InsertSQL {
	return m.NewSQL("").AsInsert(lotsOfChanges...)
}

// Returning adds a RETURNING clause to retrieve values from inserted rows.
func (s *InsertSQL) Returning(expressions ...string) *InsertSQL {
	s.outputExpression = strings.Join(expressions, ", ")
	return s
}

// OnConflict specifies conflict target columns for upsert operations. Use with
// DoNothing, DoUpdate, or DoUpdateAll.
func (s *InsertSQL) OnConflict(targets ...string) *InsertSQL {
	s.conflictTargets = append([]string{}, targets...)
	return s
}

// DoNothing adds ON CONFLICT DO NOTHING, ignoring rows that conflict. Must be
// used after OnConflict.
func (s *InsertSQL) DoNothing() *InsertSQL {
	s.conflictActions = []string{}
	return s
}

// DoUpdate adds ON CONFLICT DO UPDATE SET with custom expressions. Must be
// used after OnConflict.
func (s *InsertSQL) DoUpdate(expressions ...string) *InsertSQL {
	s.conflictActions = append(s.conflictActions, expressions...)
	return s
}

// DoUpdateAll adds ON CONFLICT DO UPDATE SET for all inserted fields. Must be
// used after OnConflict.
func (s *InsertSQL) DoUpdateAll() *InsertSQL {
	s.updateAll = true
	return s
}

// DoUpdateAllExcept is like DoUpdateAll but excludes specified fields from
// the update.
func (s *InsertSQL) DoUpdateAllExcept(fields ...string) *InsertSQL {
	s.updateAll = false
	s.updateAllExcept = append(s.updateAllExcept, fields...)
	return s
}

// Tap applies transformation functions to this InsertSQL, enabling custom
// method chaining.
func (s *InsertSQL) Tap(funcs ...func(*InsertSQL) *InsertSQL) *InsertSQL {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

func (s InsertSQL) String() string {
	sql, _ := s.StringValues()
	return sql
}

func (s *InsertSQL) StringValues() (string, []interface{}) {
	sql, values, _ := s.compile()
	return sql, values
}

// Err returns the first error of the changes.
func (s *InsertSQL) Err() error {
	_, _, err := s.compile()
	return err
}

func (s *InsertSQL) compile() (string, []interface{}, error) {
	fields := []string{}
	fieldsIndex := map[string]int{}
	numbers := []string{}
	values := []interface{}{}
	all, err := s.model.getChanges(s.changes)
	for _, changes := range all {
		for field, value := range changes {
			value, perr := prepareChange(field, value)
			if perr != nil {
				if err == nil {
					err = perr
				}
				continue
			}
			idx, ok := fieldsIndex[field.Name]
			if !ok {
				idx = len(fields)
				fieldsIndex[field.Name] = idx
				fields = append(fields, field.ColumnName)
				numbers = append(numbers, "")
			}
			// a duplicated field keeps its position, the last value wins
			switch v := value.(type) {
			case String:
				numbers[idx] = string(v)
			case stringWithArg:
				values = append(values, v.arg)
				numbers[idx] = strings.Replace(v.str, "$?", fmt.Sprintf("$%d", len(values)), -1)
			default:
				values = append(values, v)
				numbers[idx] = fmt.Sprintf("$%d", len(values))
			}
		}
	}
	values = compactValues(numbers, values)
	i := len(values) + 1
	var sql string
	if len(fields) > 0 {
		sql = "INSERT INTO " + s.model.tableName + " (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(numbers, ", ") + ")"
	} else {
		sql = s.sql
		for _, v := range s.values {
			sql = strings.Replace(sql, "$?", fmt.Sprintf("$%d", i), 1)
			i += 1
			values = append(values, v)
		}
	}
	if sql != "" {
		sql += s.onConflict(fields)
		if s.outputExpression != "" {
			sql += " RETURNING " + s.outputExpression
		}
	}
	sql, values = s.model.convertValues(sql, values)
	return sql, values, err
}

func (s *InsertSQL) onConflict(fields []string) string {
	if s.conflictTargets == nil {
		return ""
	}
	var actions []string
	if s.updateAll {
		for _, field := range fields {
			actions = append(actions, field+" = EXCLUDED."+field)
		}
	} else if len(s.updateAllExcept) > 0 {
	outer:
		for _, field := range fields {
			for _, except := range s.updateAllExcept {
				if field == except {
					continue outer
				}
			}
			actions = append(actions, field+" = EXCLUDED."+field)
		}
	}
	if s.conflictActions != nil {
		if actions == nil {
			actions = []string{}
		}
		actions = append(actions, s.conflictActions...)
	}
	if actions == nil {
		return ""
	}
	action := strings.Join(actions, ", ")
	if action == "" {
		action = "DO NOTHING"
	} else {
		action = "DO UPDATE SET " + action
	}
	target := strings.Join(s.conflictTargets, ", ")
	if target != "" && !strings.HasPrefix(target, "(") {
		target = "(" + target + ")"
	}
	if target == "" {
		return " ON CONFLICT " + action
	}
	return " ON CONFLICT " + target + " " + action
}

// compactValues drops the values no longer referenced by numbers after a
// duplicated field was overwritten, and renumbers the parameters.
func compactValues(numbers []string, values []interface{}) []interface{} {
	used := make([]bool, len(values))
	for _, n := range numbers {
		for _, m := range positionalParameter.FindAllStringSubmatch(n, -1) {
			if num, err := strconv.Atoi(m[1]); err == nil && num >= 1 && num <= len(values) {
				used[num-1] = true
			}
		}
	}
	renumber := make(map[int]int, len(values))
	out := make([]interface{}, 0, len(values))
	for idx, value := range values {
		if used[idx] {
			out = append(out, value)
			renumber[idx+1] = len(out)
		}
	}
	if len(out) == len(values) {
		return values
	}
	for i := range numbers {
		numbers[i] = positionalParameter.ReplaceAllStringFunc(numbers[i], func(p string) string {
			num, _ := strconv.Atoi(p[1:])
			return fmt.Sprintf("$%d", renumber[num])
		})
	}
	return out
}
