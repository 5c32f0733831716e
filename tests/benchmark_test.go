package psqlx_test

import (
	"strconv"
	"testing"

	"github.com/gopsql/db"
	"github.com/gopsql/pgx"
	"github.com/gopsql/pq"
	"github.com/gopsql/psqlx"
)

func benchmarkHstoreRead(b *testing.B, conn db.DB) {
	b.Helper()
	m := psqlx.NewModel(product{}, conn)
	if err := m.NewSQL(m.DropSchema()).Execute(); err != nil {
		b.Skip(err)
	}
	if err := m.NewSQL(m.Schema()).Execute(); err != nil {
		b.Skip(err)
	}
	defer m.NewSQL(m.DropSchema()).Execute()
	attrs := map[string]string{}
	for i := 0; i < 20; i++ {
		attrs["key"+strconv.Itoa(i)] = strconv.Itoa(i)
	}
	for i := 0; i < 100; i++ {
		m.Insert("Name", strconv.Itoa(i), "Sizes", []int64{1, 2, 3}, "Attrs", attrs).MustExecute()
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var rows []product
		if err := m.Find().WHERE("Attrs", "contains", "key1").Query(&rows); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHstorePQ(b *testing.B) {
	conn, err := pq.Open(connStr)
	if err != nil {
		b.Skip(err)
	}
	defer conn.Close()
	benchmarkHstoreRead(b, conn)
}

func BenchmarkHstorePGX(b *testing.B) {
	conn, err := pgx.Open(connStr)
	if err != nil {
		b.Skip(err)
	}
	defer conn.Close()
	benchmarkHstoreRead(b, conn)
}

func BenchmarkHstoreValue(b *testing.B) {
	h := psqlx.Hstore{}
	for i := 0; i < 20; i++ {
		h.Set("key"+strconv.Itoa(i), `value "`+strconv.Itoa(i)+`"`)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		v, err := h.Value()
		if err != nil {
			b.Fatal(err)
		}
		var out psqlx.Hstore
		if err := out.Scan(v); err != nil {
			b.Fatal(err)
		}
	}
}
