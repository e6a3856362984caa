package schema

import "testing"

func TestLoad(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedTables := []string{
		"patient", "hospital", "medical_condition", "lifestyle",
		"lab_result", "treatment", "diagnosis", "family_history",
	}
	for _, table := range expectedTables {
		if len(r.Columns(table)) == 0 {
			t.Errorf("expected columns for table %s", table)
		}
	}
	if r.Columns("nonexistent") != nil {
		t.Error("expected nil for unknown table")
	}
}

func TestExpectedColumns_Deduplicated(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cols := r.ExpectedColumns()
	seen := make(map[string]bool)
	for _, c := range cols {
		if seen[c] {
			t.Errorf("duplicate expected column %s", c)
		}
		seen[c] = true
	}

	// condition_name appears in three tables but once in the union.
	if !seen["condition_name"] {
		t.Error("expected condition_name in union")
	}
	if !seen["first_name"] || !seen["hospital_name"] {
		t.Error("expected patient and hospital columns in union")
	}
}
