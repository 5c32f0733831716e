// Package psqlx is a PostgreSQL query builder for Go structs with support for
// array and hstore columns.
//
// # Overview
//
// Package psqlx maps Go structs to PostgreSQL tables and provides fluent APIs
// for building and executing SELECT, INSERT, UPDATE, and DELETE queries. It
// runs on any driver implementing github.com/gopsql/db (pq, pgx or
// database/sql through gopsql/standard).
//
// Key features include:
//   - Model-based CRUD operations with automatic column name inference
//   - Array columns from Go slices, with custom element types and dimensions
//   - Hstore columns with lookups, partial reads and partial updates
//   - References: hstore columns whose values point to rows of other models
//   - Schema generation from struct definitions
//
// # Basic Usage
//
//	type User struct {
//		Id        int
//		Name      string
//		Scores    []int
//		Tags      psqlx.Hstore
//		CreatedAt time.Time
//	}
//
//	users := psqlx.NewModel(User{}, conn)
//
//	var id int
//	users.Insert("Name", "Alice", "Scores", []int{1, 2}, "Tags", map[string]string{"a": "1"}).
//		Returning("id").MustQueryRow(&id)
//
//	var user User
//	users.Find().Where("id = $1", id).MustQuery(&user)
//
// # Arrays
//
// Any slice field (except []byte) is an array column. The element type is
// derived from the Go type and can be changed with the "array" tag, the
// dimension with the "dimension" tag:
//
//	type Matrix struct {
//		Id     int
//		Cells  [][]int
//		Labels []string `array:"varchar(20)"`
//	}
//	// cells bigint[][] DEFAULT '{}' NOT NULL,
//	// labels varchar(20)[] DEFAULT '{}' NOT NULL
//
// # Hstore
//
// Fields of type Hstore (or tagged `dataType:"hstore"`) are hstore columns.
// WHERE() understands the "exact" and "contains" lookups on them:
//
//	users.WHERE("Tags", "contains", map[string]string{"a": "1"}) // tags @> $1::hstore
//	users.WHERE("Tags", "contains", []string{"a", "b"})          // tags ?& $1::text[]
//	users.WHERE("Tags", "contains", "a")                         // tags ? $1
//	users.WHERE("Tags", "exact", map[string]string{"a": "1"})    // tags = $1::hstore
//
// Invalid lookups are not panics: the error is kept by the statement and
// returned by Err(), Query(), QueryRow() and Execute().
//
// Partial reads and updates operate on the rows selected so far:
//
//	keys, _ := users.Where("id = $1", id).HKeys("Tags")
//	color, _ := users.Where("id = $1", id).HPeek("Tags", "color")
//	some, _ := users.Where("id = $1", id).HSlice("Tags", "color", "size")
//	users.Where("id = $1", id).HUpdate("Tags", map[string]string{"size": "L"}).MustExecute()
//	users.Where("id = $1", id).HRemove("Tags", "color").MustExecute()
//
// A Dictionary is an Hstore bound to the row it was read from, so removing
// keys updates that row only:
//
//	tags, _ := users.Dictionary(&user, "Tags")
//	tags.MustRemove("color")
//
// # Drivers
//
// Hstore values are sent and scanned as text, which works with every driver.
// To let pgx pools encode hstore natively, use package pgxhstore to register
// the type on each new connection.
package psqlx
