package psqlx

import (
	"errors"
	"reflect"
	"testing"
)

type listing struct {
	Id     int
	Title  string
	Zones  []int64
	Flags  Hstore
	Owners References
}

func TestDeleteStatements(t *testing.T) {
	t.Parallel()
	m := NewModel(listing{})
	owner := References{"seller": {Type: "users", Id: "5"}}

	tests := []struct {
		name     string
		build    func() *DeleteSQL
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "whole table",
			build:   func() *DeleteSQL { return m.Delete().Returning("id", "flags") },
			wantSQL: "DELETE FROM listings RETURNING id, flags",
		},
		{
			name:     "filters of the select are kept",
			build:    func() *DeleteSQL { return m.Where("zones && $1", "{3,4}").Delete() },
			wantSQL:  "DELETE FROM listings WHERE zones && $1",
			wantArgs: []interface{}{"{3,4}"},
		},
		{
			name: "flag keys after a numbered filter",
			build: func() *DeleteSQL {
				return m.Delete().Where("title = $?", "x").WHERE("Flags", "contains", []string{"spam", "bot"})
			},
			wantSQL:  "DELETE FROM listings WHERE (title = $1) AND (flags ?& $2::text[])",
			wantArgs: []interface{}{"x", `{"spam","bot"}`},
		},
		{
			name: "serialized owners",
			build: func() *DeleteSQL {
				return m.Delete().WHERE("Owners", "exact", owner).Returning("id")
			},
			wantSQL:  "DELETE FROM listings WHERE owners = $1::hstore RETURNING id",
			wantArgs: []interface{}{NewHstore(map[string]string{"seller": "users:5"})},
		},
		{
			name: "using another table",
			build: func() *DeleteSQL {
				return m.Delete().Using("users").
					Where("listings.owners -> 'seller' = 'users:' || users.id").
					Where("users.banned = $?", true)
			},
			wantSQL:  "DELETE FROM listings USING users WHERE (listings.owners -> 'seller' = 'users:' || users.id) AND (users.banned = $1)",
			wantArgs: []interface{}{true},
		},
		{
			name: "tap",
			build: func() *DeleteSQL {
				return m.Delete().Tap(func(d *DeleteSQL) *DeleteSQL { return d.WHERE("Flags", "@>", "hidden") })
			},
			wantSQL:  "DELETE FROM listings WHERE flags ? $1",
			wantArgs: []interface{}{"hidden"},
		},
		{
			name: "raw statement",
			build: func() *DeleteSQL {
				return m.NewSQL("DELETE FROM listings WHERE flags ? $?", "stale").AsDelete().Returning("id")
			},
			wantSQL:  "DELETE FROM listings WHERE flags ? $1 RETURNING id",
			wantArgs: []interface{}{"stale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build()
			if err := s.Err(); err != nil {
				t.Fatal(err)
			}
			gotSQL, gotArgs := s.StringValues()
			if gotSQL != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", gotSQL, tt.wantSQL)
			}
			if len(gotArgs) != 0 || len(tt.wantArgs) != 0 {
				if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
					t.Errorf("Args = %#v, want %#v", gotArgs, tt.wantArgs)
				}
			}
		})
	}
}

func TestDeleteLookupErrors(t *testing.T) {
	t.Parallel()
	conn := &fakeDB{}
	m := NewModel(listing{}, conn)

	tests := []struct {
		name string
		del  *DeleteSQL
		want error
	}{
		{"unsupported lookup", m.Where("id = $1", 1).WHERE("Flags", "like", "x").Delete(), ErrUnsupportedLookup},
		{"exact with a key", m.Delete().WHERE("Flags", "exact", "x"), ErrInvalidLookup},
		{"bad reference operand", m.Delete().WHERE("Owners", "contains", 7), ErrInvalidLookup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.del.Err(); !errors.Is(err, tt.want) {
				t.Errorf("Err() = %v, want %v", err, tt.want)
			}
			if err := tt.del.Execute(); !errors.Is(err, tt.want) {
				t.Errorf("Execute() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(conn.statements) != 0 {
		t.Errorf("statements = %v, want none", conn.statements)
	}
}

func TestDeleteExecute(t *testing.T) {
	t.Parallel()

	conn := &fakeDB{affected: 3}
	m := NewModel(listing{}, conn)

	var n int
	if err := m.Delete().WHERE("Flags", "contains", "spam").Execute(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("rows affected = %d, want 3", n)
	}
	st := conn.last()
	if st.sql != "DELETE FROM listings WHERE flags ? $1" || !reflect.DeepEqual(st.args, []interface{}{"spam"}) {
		t.Errorf("statement = %q %v", st.sql, st.args)
	}

	if err := NewModel(listing{}).Delete().Execute(); err != ErrNoConnection {
		t.Errorf("Execute() error = %v, want ErrNoConnection", err)
	}
}
