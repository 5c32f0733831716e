package psqlx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type (
	// SelectSQL can be created with Model.NewSQL().AsSelect()
	SelectSQL struct {
		*SQL
		sqlConditions
		sqlHavings
		fields  []string
		from    string
		join    string
		with    string
		groupBy string
		orderBy string
		limit   string
		offset  string
	}

	sqlConditions struct {
		conditions []string
		args       []interface{}
		err        error
	}

	sqlHavings struct {
		havings []string
	}

	fieldsFunc func(fields []string, tableName string) []string
)

var positionalParameter = regexp.MustCompile(`\$(\d+)`)

// AddTableName adds table name to every field. Use it with Find().
//
//	psqlx.NewModel(models.User{}, conn).Find(psqlx.AddTableName)
//	// SELECT users.id, users.name FROM users
var AddTableName fieldsFunc = func(fields []string, tableName string) []string {
	out := make([]string, len(fields))
	for i := range fields {
		out[i] = tableName + "." + fields[i]
	}
	return out
}

// AddTableName adds the Model's table name to every field.
func (m Model) AddTableName(fields ...string) []string {
	return AddTableName(fields, m.tableName)
}

// Convert SQL to SelectSQL. The optional fields will be used in Select().
func (s SQL) AsSelect(fields ...string) *SelectSQL {
	f := &SelectSQL{
		SQL:    &s,
		fields: fields,
	}
	f.SQL.main = f
	f.SQL.sql = f.numberFragment(s.sql, s.values)
	return f
}

// clone copies the statement so that a query run from it does not change s.
func (s *SelectSQL) clone() *SelectSQL {
	c := new(SelectSQL)
	*c = *s
	sql := *s.SQL
	c.SQL = &sql
	c.SQL.main = c
	c.conditions = append([]string{}, s.conditions...)
	c.args = append([]interface{}{}, s.args...)
	c.havings = append([]string{}, s.havings...)
	c.fields = append([]string{}, s.fields...)
	return c
}

func (m Model) newSelect(fields ...string) *SelectSQL {
	return m.NewSQL("").AsSelect(fields...)
}

// Create a SELECT query statement with all fields of a Model. If you want to
// use other data type than the type of struct passed in NewModel(), see
// Select().
//
//	// put results into a slice
//	var users []models.User
//	psqlx.NewModel(models.User{}, conn).Find().MustQuery(&users)
//
//	// put results into a struct
//	var user models.User
//	psqlx.NewModel(models.User{}, conn).Find().Where("id = $1", 1).MustQuery(&user)
//
// You can pass options to modify Find(). For example, Find(psqlx.AddTableName)
// adds table name to every field.
func (m Model) Find(options ...interface{}) *SelectSQL {
	return m.newSelect().Find(options...)
}

// Select is like Find but can choose what columns to retrieve.
//
// To put results into a slice of strings:
//
//	var names []string
//	psqlx.NewModelTable("users", conn).Select("name").OrderBy("id ASC").MustQuery(&names)
//
// To put results into a slice of custom struct:
//
//	var users []struct {
//		name string
//		id   int
//	}
//	psqlx.NewModelTable("users", conn).Select("name", "id").OrderBy("id ASC").MustQuery(&users)
func (m Model) Select(fields ...string) *SelectSQL {
	return m.newSelect(fields...)
}

// Create a SELECT query statement with FROM items.
func (m Model) From(items ...string) *SelectSQL {
	return m.newSelect().From(items...)
}

// Create a SELECT query statement with joins.
func (m Model) Join(expressions ...string) *SelectSQL {
	return m.newSelect().Join(expressions...)
}

// Create a SELECT query statement with CTE (Common Table Expression).
func (m Model) With(expression string, args ...interface{}) *SelectSQL {
	return m.newSelect().With(expression, args...)
}

// Create a SELECT query statement with CTE (Common Table Expression).
func (m Model) WITH(name string, sql *SelectSQL) *SelectSQL {
	return m.newSelect().WITH(name, sql)
}

// Create a SELECT query statement with condition. Arguments should use
// positonal parameters like $1, $2. If only one argument is provided, "$?" in
// the condition will be replaced with the correct positonal parameter.
func (m Model) Where(condition string, args ...interface{}) *SelectSQL {
	return m.newSelect().Where(condition, args...)
}

// Create a SELECT query statement with conditions from field, lookup, operand
// tuples. See SelectSQL.WHERE().
func (m Model) WHERE(args ...interface{}) *SelectSQL {
	return m.newSelect().WHERE(args...)
}

// MustExists is like Exists but panics if existence check operation fails.
func (m Model) MustExists() bool {
	return m.newSelect().MustExists()
}

// Exists checks if the table has any row.
func (m Model) Exists() (bool, error) {
	return m.newSelect().Exists()
}

// MustCount is like Count but panics if count operation fails.
func (m Model) MustCount(optional ...string) int {
	return m.newSelect().MustCount(optional...)
}

// Count returns number of rows of the table.
func (m Model) Count(optional ...string) (int, error) {
	return m.newSelect().Count(optional...)
}

// Create a SELECT query statement with all fields of a Model. Options can be
// funtions like AddTableName or strings like "--no-reset" (use Select instead
// of ResetSelect).
func (s *SelectSQL) Find(options ...interface{}) *SelectSQL {
	fields := s.model.Columns()
	var noReset bool
	for _, opts := range options {
		switch f := opts.(type) {
		case fieldsFunc:
			fields = f(fields, s.model.tableName)
		case func([]string, string) []string:
			fields = f(fields, s.model.tableName)
		case string:
			if f == "--no-reset" {
				noReset = true
			}
		}
	}
	if noReset {
		return s.Select(fields...)
	}
	return s.ResetSelect(fields...)
}

// Create a UPDATE statement from Where().
func (s *SelectSQL) Update(lotsOfChanges ...interface{}) *UpdateSQL {
	n := s.model.Update(lotsOfChanges...)
	n.mergeConditions(s.sqlConditions)
	return n
}

// Create a DELETE statement from Where().
func (s *SelectSQL) Delete() *DeleteSQL {
	n := s.model.Delete()
	n.mergeConditions(s.sqlConditions)
	return n
}

// MustExists is like Exists but panics if existence check operation fails.
// Returns true if record exists, false if not exists.
func (s *SelectSQL) MustExists() bool {
	exists, err := s.Exists()
	if err != nil {
		panic(err)
	}
	return exists
}

// Create and execute a SELECT 1 AS one statement. Returns true if record
// exists, false if not exists.
func (s *SelectSQL) Exists() (exists bool, err error) {
	var ret int
	err = s.ResetSelect("1 AS one").Limit(1).QueryRow(&ret)
	if err != nil && s.model.connection != nil && err == s.model.connection.ErrNoRows() {
		err = nil
		return
	}
	exists = ret == 1
	return
}

// MustCount is like Count but panics if count operation fails.
func (s *SelectSQL) MustCount(optional ...string) int {
	count, err := s.Count(optional...)
	if err != nil {
		panic(err)
	}
	return count
}

// Create and execute a SELECT COUNT(*) statement, return number of rows.
// To count in a different way: Count("COUNT(DISTINCT authors.id)").
func (s *SelectSQL) Count(optional ...string) (count int, err error) {
	var expr string
	if len(optional) > 0 && optional[0] != "" {
		expr = optional[0]
	} else {
		expr = "COUNT(*)"
	}
	err = s.ResetSelect(expr).QueryRow(&count)
	return
}

// Set expressions to SELECT statement.
func (s *SelectSQL) ResetSelect(expressions ...string) *SelectSQL {
	s.fields = expressions
	return s
}

// Add expressions to SELECT statement.
func (s *SelectSQL) Select(expressions ...string) *SelectSQL {
	s.fields = append(s.fields, expressions...)
	return s
}

// Replace old field names in existing SELECT statement with new.
func (s *SelectSQL) ReplaceSelect(old, new string) *SelectSQL {
	for i := range s.fields {
		if s.fields[i] == old {
			s.fields[i] = new
		}
	}
	return s
}

// Adds GROUP BY to SELECT statement.
func (s *SelectSQL) GroupBy(expressions ...string) *SelectSQL {
	s.groupBy = strings.Join(expressions, ", ")
	return s
}

// Adds HAVING to SELECT statement. Arguments should use positonal
// parameters like $1, $2. If only one argument is provided, "$?" in the
// condition will be replaced with the correct positonal parameter.
func (s *SelectSQL) Having(condition string, args ...interface{}) *SelectSQL {
	s.args = append(s.args, args...)
	if len(args) == 1 {
		condition = strings.Replace(condition, "$?", fmt.Sprintf("$%d", len(s.args)), -1)
	}
	s.havings = append(s.havings, condition)
	return s
}

// Adds ORDER BY to SELECT statement.
func (s *SelectSQL) OrderBy(expressions ...string) *SelectSQL {
	s.orderBy = strings.Join(expressions, ", ")
	return s
}

// Adds LIMIT to SELECT statement.
func (s *SelectSQL) Limit(count interface{}) *SelectSQL {
	if count == nil {
		s.limit = ""
	} else {
		s.limit = fmt.Sprint(count)
	}
	return s
}

// Adds OFFSET to SELECT statement.
func (s *SelectSQL) Offset(start interface{}) *SelectSQL {
	if start == nil {
		s.offset = ""
	} else {
		s.offset = fmt.Sprint(start)
	}
	return s
}

// Adds condition to SELECT statement. Arguments should use positonal
// parameters like $1, $2. If only one argument is provided, "$?" in the
// condition will be replaced with the correct positonal parameter.
func (s *SelectSQL) Where(condition string, args ...interface{}) *SelectSQL {
	s.sqlConditions.where(condition, args...)
	return s
}

// WHERE adds conditions to SELECT statement from variadic inputs.
//
// The args parameter contains field name, lookup, operand tuples with each
// tuple consisting of three consecutive elements: the field name as a string,
// a lookup as a string and the value to match against that field. For scalar
// and array columns the lookup is an operator symbol (e.g. "=", ">", "<="):
// WHERE("A", "=", 1, "B", "!=", 2) means "WHERE (A = $1) AND (B != $2)".
//
// Hstore columns accept the "exact" and "contains" lookups:
//
//	WHERE("Tags", "exact", map[string]string{"a": "1"})    // tags = $1::hstore
//	WHERE("Tags", "contains", map[string]string{"a": "1"}) // tags @> $1::hstore
//	WHERE("Tags", "contains", []string{"a", "b"})          // tags ?& $1::text[]
//	WHERE("Tags", "contains", "a")                         // tags ? $1
//
// An invalid lookup or operand is kept as the error of the statement, see
// Err().
func (s *SelectSQL) WHERE(args ...interface{}) *SelectSQL {
	s.sqlConditions.lower(*s.model, args)
	return s
}

// Clears existing FROM items and set new FROM items.
func (s *SelectSQL) ResetFrom(items ...string) *SelectSQL {
	s.from = strings.Join(items, ", ")
	return s
}

// Adds FROM items to SELECT statement.
func (s *SelectSQL) From(items ...string) *SelectSQL {
	if s.from == "" {
		s.from = s.model.tableName
	}
	if s.from != "" {
		s.from += ", "
	}
	s.from += strings.Join(items, ", ")
	return s
}

// Clears existing JOIN statements and set new JOIN statements.
func (s *SelectSQL) ResetJoin(expressions ...string) *SelectSQL {
	s.join = strings.Join(expressions, " ")
	return s
}

// Adds join to SELECT statement.
func (s *SelectSQL) Join(expressions ...string) *SelectSQL {
	if s.join != "" && !strings.HasSuffix(s.join, " ") {
		s.join += " "
	}
	s.join += strings.Join(expressions, " ")
	return s
}

// Adds WITH to SELECT statement.
func (s *SelectSQL) With(expression string, args ...interface{}) *SelectSQL {
	i := 1
	for range args {
		expression = strings.Replace(expression, "$?", fmt.Sprintf("$%d", i), 1)
		i += 1
	}
	expression = shiftParameters(expression, len(s.args))
	if s.with != "" {
		s.with += ", "
	}
	s.with += expression
	s.args = append(s.args, args...)
	return s
}

// Adds WITH from another SELECT statement to SELECT statement. The name can
// end with "AS MATERIALIZED" or "AS NOT MATERIALIZED".
func (s *SelectSQL) WITH(name string, sql *SelectSQL) *SelectSQL {
	sqlQuery := shiftParameters(sql.String(), len(s.args))
	if s.with != "" {
		s.with += ", "
	}
	if strings.Contains(strings.ToLower(name), " as ") { // "name AS [NOT] MATERIALIZED"
		s.with += name + " (" + sqlQuery + ")"
	} else {
		s.with += name + " AS (" + sqlQuery + ")"
	}
	s.args = append(s.args, sql.args...)
	if s.err == nil {
		s.err = sql.err
	}
	return s
}

// Perform operations on the chain.
func (s *SelectSQL) Tap(funcs ...func(*SelectSQL) *SelectSQL) *SelectSQL {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

func (s *SelectSQL) String() string {
	var sql string
	if s.with != "" {
		sql += "WITH " + s.with + " "
	}
	if s.sql != "" {
		sql += s.sql
	} else {
		sql += "SELECT " + strings.Join(s.fields, ", ") + " FROM "
		if s.from != "" {
			sql += s.from
		} else {
			sql += s.model.tableName
		}
	}
	if s.join != "" {
		sql += " " + s.join
	}
	sql += s.sqlConditions.whereClause()
	if s.groupBy != "" {
		sql += " GROUP BY " + s.groupBy + s.having()
	}
	if s.orderBy != "" {
		sql += " ORDER BY " + s.orderBy
	}
	if s.limit != "" {
		sql += " LIMIT " + s.limit
	}
	if s.offset != "" {
		sql += " OFFSET " + s.offset
	}
	return sql
}

func (s *SelectSQL) StringValues() (string, []interface{}) {
	return s.model.convertValues(s.String(), s.args)
}

// Err returns the first error of WHERE() or of the hstore verbs.
func (s *SelectSQL) Err() error {
	return s.err
}

func (s *SelectSQL) compile() (string, []interface{}, error) {
	sql, values := s.StringValues()
	return sql, values, s.err
}

func (s *sqlConditions) where(condition string, args ...interface{}) {
	s.args = append(s.args, args...)
	if len(args) == 1 {
		condition = strings.Replace(condition, "$?", fmt.Sprintf("$%d", len(s.args)), -1)
	}
	s.conditions = append(s.conditions, condition)
}

// lower compiles field, lookup, operand tuples. The first error is kept and
// the failing tuple is left out of the conditions. Trailing arguments that do
// not make a tuple are ignored, unless they name an hstore field.
func (s *sqlConditions) lower(m Model, args []interface{}) {
	if rest := len(args) % 3; rest != 0 && s.err == nil {
		name, _ := args[len(args)-rest].(string)
		if f := m.fieldFor(name); f != nil && f.Type.Kind == StorageHstore {
			s.err = fmt.Errorf("%w: WHERE expects field, lookup, operand tuples, %s has no operand", ErrInvalidLookup, f.Name)
		}
	}
	for i := 0; i < len(args)/3; i++ {
		var name string
		if c, ok := args[i*3].(string); ok {
			name = c
		}
		var lookup string
		if o, ok := args[i*3+1].(string); ok {
			lookup = o
		}
		if name == "" || lookup == "" {
			continue
		}
		fragment, fragmentArgs, err := m.lowerPredicate(name, lookup, args[i*3+2])
		if err != nil {
			if s.err == nil {
				s.err = err
			}
			continue
		}
		s.addFragment(fragment, fragmentArgs)
	}
}

// addFragment numbers the "$?" placeholders of fragment in order.
func (s *sqlConditions) addFragment(fragment string, args []interface{}) {
	s.conditions = append(s.conditions, s.numberFragment(fragment, args))
}

func (s *sqlConditions) numberFragment(fragment string, args []interface{}) string {
	for _, arg := range args {
		s.args = append(s.args, arg)
		fragment = strings.Replace(fragment, "$?", "$"+strconv.Itoa(len(s.args)), 1)
	}
	return fragment
}

func (s *sqlConditions) mergeConditions(from sqlConditions) {
	s.conditions = append([]string{}, from.conditions...)
	s.args = append([]interface{}{}, from.args...)
	s.err = from.err
}

func (s sqlConditions) whereClause() string {
	return conditionsToStr(s.conditions, " WHERE ")
}

func (s sqlHavings) having() string {
	return conditionsToStr(s.havings, " HAVING ")
}

func conditionsToStr(conds []string, prefix string) (out string) {
	moreThanOne := len(conds) > 1
	for i, conf := range conds {
		if i > 0 {
			out += " AND "
		}
		if moreThanOne {
			out += "(" + conf + ")"
		} else {
			out += conf
		}
	}
	if out != "" {
		out = prefix + out
	}
	return
}

// shiftParameters adds offset to every positional parameter in sql.
func shiftParameters(sql string, offset int) string {
	if offset == 0 {
		return sql
	}
	return positionalParameter.ReplaceAllStringFunc(sql, func(s string) string {
		num, err := strconv.Atoi(s[1:])
		if err != nil { // this should not happen
			panic(err)
		}
		return fmt.Sprintf("$%d", num+offset)
	})
}
