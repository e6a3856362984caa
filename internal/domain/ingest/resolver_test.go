package ingest

import (
	"context"
	"testing"
)

func strp(s string) *string { return &s }

func TestResolveHospital(t *testing.T) {
	hospitals := &memHospitalRepo{}
	r := NewReferenceResolver(hospitals, &memConditionRepo{})
	ctx := context.Background()

	id1, err := r.ResolveHospital(ctx, strp("General"), strp("1 Main St"), 1)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if id1 == nil {
		t.Fatal("expected hospital id")
	}

	id2, err := r.ResolveHospital(ctx, strp("General"), strp("1 Main St"), 1)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if *id2 != *id1 {
		t.Errorf("same natural key resolved to %d then %d", *id1, *id2)
	}
	if hospitals.creates != 1 {
		t.Errorf("creates = %d, want 1", hospitals.creates)
	}

	// Same name at a different address is a different hospital.
	id3, err := r.ResolveHospital(ctx, strp("General"), strp("9 Oak Ave"), 1)
	if err != nil {
		t.Fatalf("third resolve: %v", err)
	}
	if *id3 == *id1 {
		t.Error("different address should not reuse the hospital")
	}
}

func TestResolveHospitalBothNil(t *testing.T) {
	r := NewReferenceResolver(&memHospitalRepo{}, &memConditionRepo{})
	id, err := r.ResolveHospital(context.Background(), nil, nil, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != nil {
		t.Errorf("expected nil id, got %d", *id)
	}
}

func TestResolveHospitalPartialKey(t *testing.T) {
	hospitals := &memHospitalRepo{}
	r := NewReferenceResolver(hospitals, &memConditionRepo{})
	ctx := context.Background()

	id1, err := r.ResolveHospital(ctx, strp("General"), nil, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id2, err := r.ResolveHospital(ctx, strp("General"), nil, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if *id1 != *id2 {
		t.Errorf("name-only key resolved to %d then %d", *id1, *id2)
	}
}

func TestResolveConditionCaseFold(t *testing.T) {
	conditions := &memConditionRepo{}
	r := NewReferenceResolver(&memHospitalRepo{}, conditions)
	ctx := context.Background()

	id1, err := r.ResolveCondition(ctx, "Diabetes")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id2, err := r.ResolveCondition(ctx, "  diabetes ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id3, err := r.ResolveCondition(ctx, "DIABETES")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id1 != id2 || id1 != id3 {
		t.Errorf("case variants resolved to %d, %d, %d", id1, id2, id3)
	}
	if conditions.creates != 1 {
		t.Errorf("creates = %d, want 1", conditions.creates)
	}
	if got := conditions.conditions[0].ConditionName; got != "diabetes" {
		t.Errorf("stored name = %q, want lower-case canonical form", got)
	}
}
