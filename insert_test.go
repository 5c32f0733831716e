package psqlx

import (
	"errors"
	"reflect"
	"testing"
)

type catalogItem struct {
	Id     int
	Sku    string
	Grid   [][]int64
	Labels []string `array:"varchar(20)"`
	Attrs  Hstore
	Links  References
}

func TestInsertStatements(t *testing.T) {
	t.Parallel()
	m := NewModel(catalogItem{})
	color := NewHstore(map[string]string{"color": "red"})

	tests := []struct {
		name     string
		build    func() *InsertSQL
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name: "labels and attributes",
			build: func() *InsertSQL {
				return m.Insert("Labels", []string{"new"}, "Attrs", map[string]string{"color": "red"})
			},
			wantSQL:  "INSERT INTO catalog_items (labels, attrs) VALUES ($1, $2)",
			wantArgs: []interface{}{`{"new"}`, color},
		},
		{
			name: "changes mixed with pairs",
			build: func() *InsertSQL {
				return m.Insert(m.FieldChanges(RawChanges{"Sku": "A-1"}), "Grid", [][]int64{{0}}).Returning("id")
			},
			wantSQL:  "INSERT INTO catalog_items (sku, grid) VALUES ($1, $2) RETURNING id",
			wantArgs: []interface{}{"A-1", "{{0}}"},
		},
		{
			name: "overwritten attributes keep their position",
			build: func() *InsertSQL {
				return m.Insert("Attrs", map[string]string{"color": "blue"}, "Sku", "A-1", "Attrs", color)
			},
			wantSQL:  "INSERT INTO catalog_items (attrs, sku) VALUES ($2, $1)",
			wantArgs: []interface{}{"A-1", color},
		},
		{
			name: "expressions",
			build: func() *InsertSQL {
				return m.Insert("Labels", String("ARRAY[]::varchar(20)[]"), "Attrs", StringWithArg("hstore('color', $?)", "red"))
			},
			wantSQL:  "INSERT INTO catalog_items (labels, attrs) VALUES (ARRAY[]::varchar(20)[], hstore('color', $1))",
			wantArgs: []interface{}{"red"},
		},
		{
			name: "merge attributes on conflict",
			build: func() *InsertSQL {
				return m.Insert("Sku", "A-1", "Attrs", color).OnConflict("sku").DoUpdate("attrs = catalog_items.attrs || EXCLUDED.attrs")
			},
			wantSQL:  "INSERT INTO catalog_items (sku, attrs) VALUES ($1, $2) ON CONFLICT (sku) DO UPDATE SET attrs = catalog_items.attrs || EXCLUDED.attrs",
			wantArgs: []interface{}{"A-1", color},
		},
		{
			name: "replace every column except the key",
			build: func() *InsertSQL {
				return m.Insert("Sku", "A-1", "Grid", [][]int64{}).OnConflict("sku").DoUpdateAllExcept("sku").Returning("id")
			},
			wantSQL:  "INSERT INTO catalog_items (sku, grid) VALUES ($1, $2) ON CONFLICT (sku) DO UPDATE SET grid = EXCLUDED.grid RETURNING id",
			wantArgs: []interface{}{"A-1", "{}"},
		},
		{
			name: "replace everything",
			build: func() *InsertSQL {
				return m.Insert("Sku", "A-1", "Links", References{}).OnConflict("sku").DoUpdateAll()
			},
			wantSQL:  "INSERT INTO catalog_items (sku, links) VALUES ($1, $2) ON CONFLICT (sku) DO UPDATE SET sku = EXCLUDED.sku, links = EXCLUDED.links",
			wantArgs: []interface{}{"A-1", Hstore{}},
		},
		{
			name: "ignore duplicates on a partial index",
			build: func() *InsertSQL {
				return m.Insert("Sku", "A-1").DoNothing().OnConflict("(sku) WHERE attrs ? 'active'")
			},
			wantSQL:  "INSERT INTO catalog_items (sku) VALUES ($1) ON CONFLICT (sku) WHERE attrs ? 'active' DO NOTHING",
			wantArgs: []interface{}{"A-1"},
		},
		{
			name:     "conflict target without an action",
			build:    func() *InsertSQL { return m.Insert("Sku", "A-1").OnConflict("sku") },
			wantSQL:  "INSERT INTO catalog_items (sku) VALUES ($1)",
			wantArgs: []interface{}{"A-1"},
		},
		{
			name: "raw statement with tap",
			build: func() *InsertSQL {
				return m.NewSQL("INSERT INTO catalog_items (labels) VALUES ($?)", `{"x"}`).AsInsert().
					Tap(func(i *InsertSQL) *InsertSQL { return i.OnConflict().DoNothing() })
			},
			wantSQL:  "INSERT INTO catalog_items (labels) VALUES ($1) ON CONFLICT DO NOTHING",
			wantArgs: []interface{}{`{"x"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := tt.build()
			if err := sql.Err(); err != nil {
				t.Fatal(err)
			}
			gotSQL, gotArgs := sql.StringValues()
			if gotSQL != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", gotSQL, tt.wantSQL)
			}
			if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("Args = %#v, want %#v", gotArgs, tt.wantArgs)
			}
		})
	}

	if sql, args := m.Insert().StringValues(); sql != "" || len(args) != 0 {
		t.Errorf("Insert() without changes = %q, %v", sql, args)
	}
}

func TestInsertWithColumnTypes(t *testing.T) {
	t.Parallel()
	m := NewModel(catalogItem{})

	grid := [][]int64{{1, 2}, {3, 4}}
	sql := m.Insert(
		"Grid", grid,
		"Labels", []string{},
		"Attrs", map[string]interface{}{"a": 1, "b": nil},
		"Links", References{"owner": {Type: "users", Id: "1"}},
	)
	if err := sql.Err(); err != nil {
		t.Fatal(err)
	}
	gotSQL, gotArgs := sql.StringValues()
	wantSQL := "INSERT INTO catalog_items (grid, labels, attrs, links) VALUES ($1, $2, $3, $4)"
	if gotSQL != wantSQL {
		t.Errorf("SQL = %q, want %q", gotSQL, wantSQL)
	}
	attrs := NewHstore(map[string]string{"a": "1"})
	attrs.SetNull("b")
	wantArgs := []interface{}{
		"{{1,2},{3,4}}",
		"{}",
		attrs,
		NewHstore(map[string]string{"owner": "users:1"}),
	}
	if !reflect.DeepEqual(gotArgs, wantArgs) {
		t.Errorf("Args = %#v, want %#v", gotArgs, wantArgs)
	}
}

func TestInsertErrors(t *testing.T) {
	t.Parallel()
	conn := &fakeDB{}
	m := NewModel(catalogItem{}, conn)

	tests := []struct {
		name  string
		build func() *InsertSQL
	}{
		{"invalid array", func() *InsertSQL { return m.Insert("Grid", "x", "Labels", 1) }},
		{"invalid hstore", func() *InsertSQL { return m.Insert("Attrs", 1) }},
		{"invalid references", func() *InsertSQL { return m.Insert("Links", map[string]int{"a": 1}) }},
		{"unknown field", func() *InsertSQL { return m.Insert("Missing", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := tt.build()
			if err := sql.Err(); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Err() = %v, want ErrInvalidValue", err)
			}
			var id int
			if err := sql.Returning("id").QueryRow(&id); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("QueryRow() error = %v, want ErrInvalidValue", err)
			}
		})
	}
	if len(conn.statements) != 0 {
		t.Errorf("statements = %v, want none", conn.statements)
	}
}

func TestInsertQueryRow(t *testing.T) {
	t.Parallel()
	conn := &fakeDB{rows: [][]interface{}{{int64(7)}}}
	m := NewModel(catalogItem{}, conn)

	var id int
	if err := m.Insert("Attrs", map[string]string{"a": "1"}).Returning("id").QueryRow(&id); err != nil {
		t.Fatal(err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
	st := conn.last()
	if st.sql != "INSERT INTO catalog_items (attrs) VALUES ($1) RETURNING id" {
		t.Errorf("SQL = %q", st.sql)
	}
	if !reflect.DeepEqual(st.args, []interface{}{NewHstore(map[string]string{"a": "1"})}) {
		t.Errorf("args = %v", st.args)
	}
}
