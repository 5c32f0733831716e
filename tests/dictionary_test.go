package psqlx_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
	"github.com/gopsql/psqlx"
)

func TestDictionaryRemove(t *testing.T) {
	for _, conn := range getConnections(t) {
		t.Run(fmt.Sprintf("%T", conn), func(t *testing.T) {
			testDictionaryRemove(t, conn)
		})
	}
}

func testDictionaryRemove(t *testing.T, conn db.DB) {
	defer conn.Close()

	model := psqlx.NewModel(product{}, conn, logger.StandardLogger)
	setupModel(t, model)

	model.Insert(
		"Name", "lamp",
		"Attrs", map[string]string{"a": "1", "b": "2", "c": "3"},
		"Links", psqlx.References{"x": {Type: "t", Id: "1"}, "y": {Type: "t", Id: "2"}},
		"CreatedAt", time.Now(),
	).MustExecute()

	var p product
	model.Find().Where("id = $1", 1).MustQuery(&p)

	d, err := model.Dictionary(&p, "Attrs")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Remove("a", "c"); err != nil {
		t.Fatal(err)
	}
	if got := p.Attrs.Keys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("row keys = %v, want [b]", got)
	}
	keys, err := model.Where("id = $1", 1).HKeys("Attrs")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"b"}) {
		t.Errorf("stored keys = %v, want [b]", keys)
	}

	refs, err := model.ReferenceDictionary(&p, "Links")
	if err != nil {
		t.Fatal(err)
	}
	refs.MustRemove("x")
	var stored product
	model.Find().Where("id = $1", 1).MustQuery(&stored)
	if !reflect.DeepEqual(stored.Links, psqlx.References{"y": {Type: "t", Id: "2"}}) {
		t.Errorf("stored links = %v", stored.Links)
	}

	var detached product
	d, err = model.Dictionary(&detached, "Attrs")
	if err != nil {
		t.Fatal(err)
	}
	d.Set("k", "v")
	if err := d.Remove("k"); err != nil || detached.Attrs.Len() != 0 {
		t.Errorf("Remove() = %v, keys %v", err, detached.Attrs.Keys())
	}

	d.Set("k", "v")
	if err := d.Strict().Remove("k"); !errors.Is(err, psqlx.ErrUnboundMapping) {
		t.Errorf("strict Remove() error = %v, want ErrUnboundMapping", err)
	}
}
