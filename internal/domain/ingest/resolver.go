package ingest

import (
	"context"
	"errors"
	"strings"
)

// ReferenceResolver deduplicates the shared reference entities: hospitals
// by their (name, address) natural key, conditions by case-insensitive
// name. Entities are created lazily on first sight and their identifiers
// reused for every later reference, within a load and across loads.
//
// Lookup-then-create is not atomic on its own; the storage layer backs it
// with unique indexes on the natural keys, and the resolver retries the
// lookup once when a concurrent loader wins the insert race.
type ReferenceResolver struct {
	hospitals  HospitalRepository
	conditions ConditionRepository
}

func NewReferenceResolver(hospitals HospitalRepository, conditions ConditionRepository) *ReferenceResolver {
	return &ReferenceResolver{hospitals: hospitals, conditions: conditions}
}

// ResolveHospital returns the identifier of the hospital with the given
// name and address, creating it when absent. Both fields nil means no
// hospital is implied and the result is nil.
func (r *ReferenceResolver) ResolveHospital(ctx context.Context, name, address *string, fileID int64) (*int64, error) {
	if name == nil && address == nil {
		return nil, nil
	}

	h, err := r.hospitals.FindByNameAddress(ctx, name, address)
	if err == nil {
		return &h.HospitalID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := &Hospital{HospitalName: name, HospitalAddress: address, FileID: fileID}
	err = r.hospitals.Create(ctx, created)
	if err == nil {
		return &created.HospitalID, nil
	}
	if isUniqueViolation(err) {
		if h, err := r.hospitals.FindByNameAddress(ctx, name, address); err == nil {
			return &h.HospitalID, nil
		}
	}
	return nil, err
}

// ResolveCondition returns the identifier of the condition with the
// given name, creating it when absent. Names are folded to lower case
// before lookup and storage, so "Diabetes" and "diabetes" share one row.
func (r *ReferenceResolver) ResolveCondition(ctx context.Context, name string) (int64, error) {
	folded := strings.ToLower(strings.TrimSpace(name))

	c, err := r.conditions.FindByName(ctx, folded)
	if err == nil {
		return c.ConditionID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	created := &Condition{ConditionName: folded}
	err = r.conditions.Create(ctx, created)
	if err == nil {
		return created.ConditionID, nil
	}
	if isUniqueViolation(err) {
		if c, err := r.conditions.FindByName(ctx, folded); err == nil {
			return c.ConditionID, nil
		}
	}
	return 0, err
}
