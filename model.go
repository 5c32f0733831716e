package psqlx

import (
	"reflect"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// Model is a database table and it is created from struct. Table name
	// is inferred from the name of the struct, the tag of __TABLE_NAME__
	// field or its TableName() receiver. Column names are inferred from
	// struct field names or theirs "column" tags.
	//
	// Fields of type Hstore and References are stored in hstore columns,
	// slices (except []byte) in array columns.
	Model struct {
		connection  db.DB
		logger      logger.Logger
		structType  reflect.Type
		columnNamer func(string) string
		*modelInfo
	}

	modelInfo struct {
		tableName   string
		modelFields []Field
	}

	Field struct {
		Name       string     // struct field name
		ColumnName string     // column name in database
		JsonName   string     // key name in json input and output
		DataType   string     // data type in database
		Exported   bool       // false if field name is lower case (unexported)
		PrimaryKey bool       // column is "id" or tagged `column:",pk"`
		Type       ColumnType // storage of array and hstore columns
	}
)

var (
	hstoreType     = reflect.TypeOf(Hstore{})
	referencesType = reflect.TypeOf(References{})
	timeType       = reflect.TypeOf(time.Time{})
)

// NewModel initializes a Model from a struct. For available options, see
// SetOptions().
func NewModel(object interface{}, options ...interface{}) (m *Model) {
	m = &Model{
		modelInfo: &modelInfo{
			tableName: ToTableName(object),
		},
		structType:  reflect.TypeOf(object),
		columnNamer: DefaultColumnNamer,
	}
	if m.structType != nil && m.structType.Kind() == reflect.Ptr {
		m.structType = m.structType.Elem()
	}
	m.modelFields = parseStruct(object, m.columnNamer)
	m.SetOptions(options...)
	return
}

// NewModelTable initializes a Model by defining table name only. Useful if
// you are calling functions that don't need fields, for example:
//
//	psqlx.NewModelTable("users", conn).MustCount()
func NewModelTable(tableName string, options ...interface{}) (m *Model) {
	m = &Model{
		modelInfo: &modelInfo{
			tableName: tableName,
		},
		columnNamer: DefaultColumnNamer,
	}
	m.SetOptions(options...)
	return
}

func (m Model) String() string {
	return `model (table: "` + m.tableName + `") has ` +
		strconv.Itoa(len(m.modelFields)) + " modelFields"
}

// Table name of the Model (see ToTableName()).
func (m Model) TableName() string {
	return m.tableName
}

// Type name of the Model.
func (m Model) TypeName() string {
	if m.structType != nil {
		return m.structType.Name()
	}
	return ""
}

// Get field by struct field name, nil will be returned if no such field.
func (m Model) FieldByName(name string) *Field {
	for _, f := range m.modelFields {
		if f.Name == name {
			return &f
		}
	}
	return nil
}

// fieldFor finds a field by struct field name or by column name.
func (m Model) fieldFor(name string) *Field {
	if f := m.FieldByName(name); f != nil {
		return f
	}
	for _, f := range m.modelFields {
		if f.ColumnName == name {
			return &f
		}
	}
	return nil
}

// PrimaryKey returns the primary key field, nil if there is none.
func (m Model) PrimaryKey() *Field {
	for _, f := range m.modelFields {
		if f.PrimaryKey {
			return &f
		}
	}
	return nil
}

// primaryKeyValue returns the primary key of a struct value, ok is false if
// the model has no primary key or the value is zero.
func (m Model) primaryKeyValue(rv reflect.Value) (id interface{}, ok bool) {
	pk := m.PrimaryKey()
	if pk == nil || rv.Kind() != reflect.Struct {
		return nil, false
	}
	v := rv.FieldByName(pk.Name)
	if !v.IsValid() || v.IsZero() {
		return nil, false
	}
	if v.CanInterface() {
		return v.Interface(), true
	}
	if v.CanAddr() {
		return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem().Interface(), true
	}
	return nil, false
}

// Columns returns column names of the Model.
func (m Model) Columns() (columns []string) {
	for _, f := range m.modelFields {
		columns = append(columns, f.ColumnName)
	}
	return
}

// ColumnDataTypes returns column names and their data types.
func (m Model) ColumnDataTypes() map[string]string {
	out := map[string]string{}
	for _, f := range m.modelFields {
		out[f.ColumnName] = f.DataType
	}
	return out
}

// ColumnSignatures returns, for each array or hstore column, the parameters
// that schema diff tools must compare (see IntrospectionRules).
func (m Model) ColumnSignatures() map[string]map[string]interface{} {
	out := map[string]map[string]interface{}{}
	for _, f := range m.modelFields {
		if f.Type.Kind == StorageScalar {
			continue
		}
		out[f.ColumnName] = f.Type.Introspect()
	}
	return out
}

// Generate CREATE TABLE SQL statement from a Model.
//
//	| Go Type                                        | PostgreSQL Data Type |
//	|------------------------------------------------|----------------------|
//	| int8 / int16 / int32 / uint8 / uint16 / uint32 | integer              |
//	| int64 / uint64 / int / uint                    | bigint               |
//	| time.Time                                      | timestamptz          |
//	| float32 / float64 / decimal.Decimal            | numeric              |
//	| bool                                           | boolean              |
//	| Hstore / References                            | hstore               |
//	| slice of any of above                          | array of it          |
//	| other                                          | text                 |
//
// You can use "dataType" tag to customize the data type, "array" and
// "dimension" tags to customize arrays. "NOT NULL" is added if the struct
// field is not a pointer. If the table has hstore columns, the CREATE
// EXTENSION statement is added. You can also set SQL statements before or
// after this statement by defining "BeforeCreateSchema() string" or
// "AfterCreateSchema() string" (for example the CREATE INDEX statement)
// function for the struct.
func (m Model) Schema() string {
	if m.structType != nil {
		n := reflect.New(m.structType).Interface()
		if a, ok := n.(interface{ Schema() string }); ok {
			return a.Schema() + "\n"
		}
	}
	sql := []string{}
	hasHstore := false
	for _, f := range m.modelFields {
		if f.Type.Kind == StorageHstore {
			hasHstore = true
		}
		sql = append(sql, "\t"+f.ColumnName+" "+f.DataType)
	}
	out := "CREATE TABLE " + m.tableName + " (\n" + strings.Join(sql, ",\n") + "\n);\n"
	if hasHstore {
		out = "CREATE EXTENSION IF NOT EXISTS hstore;\n\n" + out
	}
	if m.structType != nil {
		n := reflect.New(m.structType).Interface()
		if a, ok := n.(interface{ BeforeCreateSchema() string }); ok {
			out = a.BeforeCreateSchema() + "\n\n" + out
		}
		if a, ok := n.(interface{ AfterCreateSchema() string }); ok {
			out += "\n" + a.AfterCreateSchema() + "\n"
		}
	}
	return out
}

// Generate DROP TABLE ("DROP TABLE IF EXISTS <table_name>;") SQL statement from a Model.
func (m Model) DropSchema() string {
	return "DROP TABLE IF EXISTS " + m.tableName + ";\n"
}

// Clone returns a copy of the model.
func (m *Model) Clone() *Model {
	return &Model{
		connection:  m.connection,
		logger:      m.logger,
		structType:  m.structType,
		columnNamer: m.columnNamer,
		modelInfo: &modelInfo{
			tableName:   m.tableName,
			modelFields: m.modelFields,
		},
	}
}

// Quiet returns a copy of the model without logger.
func (m *Model) Quiet() *Model {
	return m.Clone().SetLogger(nil)
}

// SetOptions sets database connection (see SetConnection()) and/or logger (see
// SetLogger()).
func (m *Model) SetOptions(options ...interface{}) *Model {
	for _, option := range options {
		switch o := option.(type) {
		case db.DB:
			m.SetConnection(o)
		case logger.Logger:
			m.SetLogger(o)
		}
	}
	return m
}

// Return database connection for the Model.
func (m *Model) Connection() db.DB {
	return m.connection
}

// Set a database connection for the Model. ErrNoConnection is returned by
// statements if no connection is set.
func (m *Model) SetConnection(db db.DB) *Model {
	m.connection = db
	return m
}

// Set the logger for the Model. Use logger.StandardLogger if you want to use
// Go's built-in standard logging package. By default, no logger is used, so
// the SQL statements are not printed to the console.
func (m *Model) SetLogger(logger logger.Logger) *Model {
	m.logger = logger
	return m
}

// SetColumnNamer sets the function converting field names to column names
// and parses the struct fields again.
func (m *Model) SetColumnNamer(namer func(string) string) *Model {
	m.columnNamer = namer
	if m.structType != nil {
		m.modelFields = parseStruct(m.structType, namer)
	}
	return m
}

// ToColumnName converts a field name to a column name with the Model's
// column namer.
func (m Model) ToColumnName(name string) string {
	if m.columnNamer == nil {
		return name
	}
	return m.columnNamer(name)
}

func (m Model) log(sql string, args []interface{}) {
	if m.logger == nil {
		return
	}
	if len(args) == 0 {
		m.logger.Debug(sql)
		return
	}
	m.logger.Debug(sql, args)
}

func (m Model) convertValues(sql string, values []interface{}) (string, []interface{}) {
	if c, ok := m.connection.(db.ConvertParameters); ok {
		return c.ConvertParameters(sql, values)
	}
	return sql, values
}

// parseStruct collects column names, json names and column types
func parseStruct(obj interface{}, namer func(string) string) (fields []Field) {
	var rt reflect.Type
	if o, ok := obj.(reflect.Type); ok {
		rt = o
	} else {
		rt = reflect.TypeOf(obj)
	}
	if rt == nil {
		return
	}
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous {
			fields = append(fields, parseStruct(f.Type, namer)...)
			continue
		}
		if f.Name == tableNameField {
			continue
		}

		columnName := f.Tag.Get("column")
		if columnName == "-" {
			continue
		}
		var options string
		if idx := strings.Index(columnName, ","); idx != -1 {
			columnName, options = columnName[:idx], columnName[idx+1:]
		}
		if columnName == "" {
			if f.PkgPath != "" {
				continue // ignore unexported field if no column specified
			}
			columnName = f.Name
			if namer != nil {
				columnName = namer(f.Name)
			}
		}

		jsonName := f.Tag.Get("json")
		if jsonName == "-" {
			jsonName = ""
		} else {
			if idx := strings.Index(jsonName, ","); idx != -1 {
				jsonName = jsonName[:idx]
			}
			if jsonName == "" {
				jsonName = f.Name
			}
		}

		primaryKey := strings.EqualFold(columnName, "id")
		for _, o := range strings.Split(options, ",") {
			if o == "pk" {
				primaryKey = true
			}
		}

		columnType := columnTypeOf(f)
		null := f.Type.Kind() == reflect.Ptr
		dataType := f.Tag.Get("dataType")
		switch {
		case dataType != "" && (dataType != "hstore" || columnType.Kind == StorageScalar):
		case columnType.Kind != StorageScalar:
			dataType = columnType.dataType(null)
		default:
			dataType = FieldDataType(columnName, f.Type.String())
		}

		fields = append(fields, Field{
			Name:       f.Name,
			Exported:   f.PkgPath == "",
			ColumnName: columnName,
			JsonName:   jsonName,
			DataType:   dataType,
			PrimaryKey: primaryKey,
			Type:       columnType,
		})
	}
	return
}

// columnTypeOf detects array and hstore fields from their Go types and tags.
// The `dataType:"hstore"` tag makes an hstore field only of a map that
// isHstoreMap accepts, other types keep the tag as their SQL type.
func columnTypeOf(f reflect.StructField) ColumnType {
	rt := f.Type
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	switch {
	case rt == referencesType:
		return ReferencesType
	case rt == hstoreType, f.Tag.Get("dataType") == "hstore" && isHstoreMap(rt):
		return HstoreType
	case rt.Kind() != reflect.Slice || rt.Elem().Kind() == reflect.Uint8:
		return ColumnType{}
	}
	dimension := 0
	elem := rt
	for elem.Kind() == reflect.Slice && elem.Elem().Kind() != reflect.Uint8 {
		dimension += 1
		elem = elem.Elem()
	}
	if d, err := strconv.Atoi(f.Tag.Get("dimension")); err == nil && d > 0 {
		dimension = d
	}
	elementType := f.Tag.Get("array")
	if elementType == "" {
		elementType = sqlElementType(elem)
	}
	return ArrayType(elementType, dimension)
}

func sqlElementType(rt reflect.Type) string {
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == timeType {
		return "timestamptz"
	}
	switch rt.String() {
	case "decimal.Decimal":
		return "numeric"
	case "[]uint8":
		return "bytea"
	}
	switch rt.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "integer"
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return "bigint"
	case reflect.Float32, reflect.Float64:
		return "numeric"
	case reflect.Bool:
		return "boolean"
	}
	return "text"
}

func (f Field) getFieldValueAddrFromStruct(structValue reflect.Value) interface{} {
	value := structValue.FieldByName(f.Name)
	if f.Exported {
		return value.Addr().Interface()
	}
	return reflect.NewAt(value.Type(), unsafe.Pointer(value.UnsafeAddr())).Interface()
}
