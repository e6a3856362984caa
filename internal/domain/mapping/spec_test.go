package mapping

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestColumnSpec_UnmarshalString(t *testing.T) {
	var s ColumnSpec
	if err := json.Unmarshal([]byte(`"First Name"`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsEmpty() {
		t.Fatal("expected non-empty spec")
	}
	if got := s.Sources(); !reflect.DeepEqual(got, []string{"First Name"}) {
		t.Errorf("Sources() = %v", got)
	}
}

func TestColumnSpec_UnmarshalList(t *testing.T) {
	var s ColumnSpec
	if err := json.Unmarshal([]byte(`["address_line","city","state"]`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Sources(); !reflect.DeepEqual(got, []string{"address_line", "city", "state"}) {
		t.Errorf("Sources() = %v", got)
	}
}

func TestColumnSpec_UnmarshalNullAndEmpty(t *testing.T) {
	cases := []string{`null`, `""`, `[]`}
	for _, raw := range cases {
		var s ColumnSpec
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !s.IsEmpty() {
			t.Errorf("expected %s to produce an empty spec", raw)
		}
		if s.Sources() != nil {
			t.Errorf("expected no sources for %s, got %v", raw, s.Sources())
		}
	}
}

func TestColumnSpec_UnmarshalRejectsObjects(t *testing.T) {
	var s ColumnSpec
	if err := json.Unmarshal([]byte(`{"col":"x"}`), &s); err == nil {
		t.Fatal("expected error for object spec")
	}
}

func TestColumnSpec_MarshalRoundTrip(t *testing.T) {
	cases := []string{`"DOB"`, `["a","b"]`, `null`}
	for _, raw := range cases {
		var s ColumnSpec
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		out, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != raw {
			t.Errorf("round trip %s -> %s", raw, out)
		}
	}
}

func TestMapping_UnmarshalNested(t *testing.T) {
	raw := `{
		"patient": {"first_name": "Name", "address": ["line1", "city"]},
		"hospital": {"hospital_name": "Hospital"},
		"extras": {"internal_id": "internal_id"}
	}`
	var m Mapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(m))
	}
	if got := m["patient"]["address"].Sources(); !reflect.DeepEqual(got, []string{"line1", "city"}) {
		t.Errorf("address sources = %v", got)
	}

	tables := m.Tables()
	if len(tables) != 2 {
		t.Errorf("Tables() should exclude extras, got %v", tables)
	}
	for _, tb := range tables {
		if tb == ExtrasTable {
			t.Error("Tables() returned extras")
		}
	}
}
