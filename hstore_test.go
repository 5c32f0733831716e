package psqlx

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestHstore(t *testing.T) {
	t.Parallel()

	h := NewHstore(map[string]string{"b": "2", "a": "1"})
	h.SetNull("c")
	h.Set("d", "")

	if h.Len() != 4 {
		t.Errorf("Len() = %d, want 4", h.Len())
	}
	if got := h.Keys(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, ok := h.Get("c"); !ok || v != nil {
		t.Errorf("Get(c) = %v, %t, want nil, true", v, ok)
	}
	if v, ok := h.Get("d"); !ok || v == nil || *v != "" {
		t.Errorf("Get(d) = %v, %t, want empty string", v, ok)
	}
	if _, ok := h.Get("z"); ok {
		t.Error("Get(z) ok = true, want false")
	}
	want := map[string]string{"a": "1", "b": "2", "c": "", "d": ""}
	if got := h.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() = %v, want %v", got, want)
	}
}

func TestHstoreScan(t *testing.T) {
	t.Parallel()

	one := "1"
	tests := []struct {
		name string
		src  interface{}
		want Hstore
	}{
		{"nil", nil, nil},
		{"bytes", []byte(`"a"=>"1"`), Hstore{"a": &one}},
		{"string", `"a"=>"1", "b"=>NULL`, Hstore{"a": &one, "b": nil}},
		{"empty", "", Hstore{}},
		{"escaped", `"k\"ey"=>"va\\lue"`, NewHstore(map[string]string{`k"ey`: `va\lue`})},
		{"pgtype", pgtype.Hstore{"a": &one}, Hstore{"a": &one}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h Hstore
			if err := h.Scan(tt.src); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(h, tt.want) {
				t.Errorf("Scan() = %v, want %v", h.Strings(), tt.want.Strings())
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		var h Hstore
		if err := h.Scan(3.14); !errors.Is(err, ErrTypeAssertionFailed) {
			t.Errorf("Scan(3.14) error = %v, want ErrTypeAssertionFailed", err)
		}
	})
}

func TestHstoreValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    Hstore
		want interface{}
	}{
		{"nil", nil, nil},
		{"text", NewHstore(map[string]string{"a": "1"}), `"a"=>"1"`},
		{"null", Hstore{"a": nil}, `"a"=>NULL`},
		{"quotes", NewHstore(map[string]string{"a": `x"y`}), `"a"=>"x\"y"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.h.Value()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
		})
	}

	t.Run("round trip", func(t *testing.T) {
		in := NewHstore(map[string]string{"a": "1", "b": "two words", "c": `back\slash`})
		in.SetNull("d")
		v, err := in.Value()
		if err != nil {
			t.Fatal(err)
		}
		var out Hstore
		if err := out.Scan(v); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("Scan(Value()) = %v, want %v", out.Strings(), in.Strings())
		}
	})
}

func TestHstorePgtype(t *testing.T) {
	t.Parallel()

	var _ pgtype.HstoreScanner = (*Hstore)(nil)
	var _ pgtype.HstoreValuer = Hstore(nil)

	one := "1"
	var h Hstore
	if err := h.ScanHstore(pgtype.Hstore{"a": &one}); err != nil {
		t.Fatal(err)
	}
	v, err := h.HstoreValue()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, pgtype.Hstore{"a": &one}) {
		t.Errorf("HstoreValue() = %v", v)
	}
}
