package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hri/hri/internal/domain/mapping"
)

// Loader decomposes flat source rows into the normalized multi-table
// record graph. Rows load sequentially and in input order, because later
// rows reuse reference entities created by earlier ones; the caller runs
// Load inside a single transaction so a failing row discards the whole
// batch.
type Loader struct {
	resolver *ReferenceResolver
	patients PatientRepository
	records  RecordRepository
	log      zerolog.Logger
}

func NewLoader(resolver *ReferenceResolver, patients PatientRepository, records RecordRepository, log zerolog.Logger) *Loader {
	return &Loader{resolver: resolver, patients: patients, records: records, log: log}
}

// Load applies the final mapping to every row and creates the resulting
// records, all tagged with fileID. Any error aborts the batch.
func (l *Loader) Load(ctx context.Context, m mapping.Mapping, rows []mapping.Row, fileID int64) error {
	for i, row := range rows {
		if err := l.loadRow(ctx, m, row, fileID); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func (l *Loader) loadRow(ctx context.Context, m mapping.Mapping, row mapping.Row, fileID int64) error {
	hospitalID, err := l.loadHospital(ctx, m["hospital"], row, fileID)
	if err != nil {
		return fmt.Errorf("hospital: %w", err)
	}

	// Every row produces exactly one patient, even when all patient
	// fields are null.
	patient := buildPatient(row, m["patient"], l.log)
	patient.HospitalID = hospitalID
	patient.FileID = fileID
	if err := l.patients.Create(ctx, patient); err != nil {
		return fmt.Errorf("patient: %w", err)
	}

	if err := l.loadLifestyle(ctx, m["lifestyle"], row, patient.PatientID, fileID); err != nil {
		return fmt.Errorf("lifestyle: %w", err)
	}
	if err := l.loadLabResult(ctx, m["lab_result"], row, patient.PatientID, fileID); err != nil {
		return fmt.Errorf("lab_result: %w", err)
	}
	if err := l.loadTreatment(ctx, m["treatment"], row, patient.PatientID, fileID); err != nil {
		return fmt.Errorf("treatment: %w", err)
	}
	if err := l.loadDiagnosis(ctx, m["diagnosis"], row, patient.PatientID, fileID); err != nil {
		return fmt.Errorf("diagnosis: %w", err)
	}
	if err := l.loadFamilyHistory(ctx, m["family_history"], row, patient.PatientID, fileID); err != nil {
		return fmt.Errorf("family_history: %w", err)
	}
	if err := l.associateConditions(ctx, m, row, patient.PatientID); err != nil {
		return fmt.Errorf("patient_condition: %w", err)
	}
	return nil
}

func (l *Loader) loadHospital(ctx context.Context, cols mapping.TableColumns, row mapping.Row, fileID int64) (*int64, error) {
	name := extractPtr(row, cols["hospital_name"])
	address := extractPtr(row, cols["hospital_address"])
	if name == nil && address == nil {
		return nil, nil
	}
	return l.resolver.ResolveHospital(ctx, name, address, fileID)
}

func (l *Loader) loadLifestyle(ctx context.Context, cols mapping.TableColumns, row mapping.Row, patientID, fileID int64) error {
	rec := &Lifestyle{
		SmokingStatus: extractPtr(row, cols["smoking_status"]),
		AlcoholUse:    extractPtr(row, cols["alcohol_use"]),
		ExerciseHabit: extractPtr(row, cols["exercise_habit"]),
		Diet:          extractPtr(row, cols["diet"]),
	}
	if rec.SmokingStatus == nil && rec.AlcoholUse == nil && rec.ExerciseHabit == nil && rec.Diet == nil {
		return nil
	}
	rec.PatientID = patientID
	rec.FileID = fileID
	return l.records.CreateLifestyle(ctx, rec)
}

func (l *Loader) loadLabResult(ctx context.Context, cols mapping.TableColumns, row mapping.Row, patientID, fileID int64) error {
	rec := &LabResult{
		TestName:  extractPtr(row, cols["test_name"]),
		TestValue: extractPtr(row, cols["test_value"]),
		Unit:      extractPtr(row, cols["unit"]),
		TestDate:  l.extractDate(row, cols["test_date"], "test_date"),
	}
	if rec.TestName == nil && rec.TestValue == nil && rec.Unit == nil && rec.TestDate == nil {
		return nil
	}
	rec.PatientID = patientID
	rec.FileID = fileID
	return l.records.CreateLabResult(ctx, rec)
}

func (l *Loader) loadTreatment(ctx context.Context, cols mapping.TableColumns, row mapping.Row, patientID, fileID int64) error {
	rec := &Treatment{
		TreatmentType: extractPtr(row, cols["treatment_type"]),
		StartDate:     l.extractDate(row, cols["start_date"], "start_date"),
		EndDate:       l.extractDate(row, cols["end_date"], "end_date"),
		Outcome:       extractPtr(row, cols["outcome"]),
	}
	if rec.TreatmentType == nil && rec.StartDate == nil && rec.EndDate == nil && rec.Outcome == nil {
		return nil
	}
	rec.PatientID = patientID
	rec.FileID = fileID
	return l.records.CreateTreatment(ctx, rec)
}

func (l *Loader) loadDiagnosis(ctx context.Context, cols mapping.TableColumns, row mapping.Row, patientID, fileID int64) error {
	rec := &Diagnosis{}
	for attr, spec := range cols {
		switch {
		case attr == "condition_id" || attr == "condition_name":
			if name, ok := mapping.Extract(row, spec); ok {
				first := firstConditionName(name)
				if first == "" {
					continue
				}
				id, err := l.resolver.ResolveCondition(ctx, first)
				if err != nil {
					return err
				}
				rec.ConditionID = &id
			}
		case strings.Contains(attr, "date"):
			rec.DiagnosisDate = l.extractDate(row, spec, attr)
		}
	}
	if rec.DiagnosisDate == nil && rec.ConditionID == nil {
		return nil
	}
	rec.PatientID = patientID
	rec.FileID = fileID
	return l.records.CreateDiagnosis(ctx, rec)
}

func (l *Loader) loadFamilyHistory(ctx context.Context, cols mapping.TableColumns, row mapping.Row, patientID, fileID int64) error {
	rec := &FamilyHistory{}
	for attr, spec := range cols {
		switch attr {
		case "condition_id", "condition_name":
			if name, ok := mapping.Extract(row, spec); ok {
				first := firstConditionName(name)
				if first == "" {
					continue
				}
				id, err := l.resolver.ResolveCondition(ctx, first)
				if err != nil {
					return err
				}
				rec.ConditionID = &id
			}
		case "relative":
			rec.Relative = extractPtr(row, spec)
		}
	}
	if rec.Relative == nil && rec.ConditionID == nil {
		return nil
	}
	rec.PatientID = patientID
	rec.FileID = fileID
	return l.records.CreateFamilyHistory(ctx, rec)
}

// associateConditions populates the patient-condition junction. The
// condition source is picked in priority order: an explicit
// medical_condition mapping, else diagnosis, else family_history. The
// extracted value may hold a comma-separated list; each name resolves
// independently and each distinct id yields one association row.
func (l *Loader) associateConditions(ctx context.Context, m mapping.Mapping, row mapping.Row, patientID int64) error {
	var cols mapping.TableColumns
	for _, table := range []string{"medical_condition", "diagnosis", "family_history"} {
		if len(m[table]) > 0 {
			cols = m[table]
			break
		}
	}

	seen := make(map[int64]bool)
	for attr, spec := range cols {
		if attr != "condition_name" && attr != "condition_id" {
			continue
		}
		joined, ok := mapping.Extract(row, spec)
		if !ok {
			continue
		}
		for _, name := range strings.Split(joined, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			id, err := l.resolver.ResolveCondition(ctx, name)
			if err != nil {
				return err
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := l.records.AddPatientCondition(ctx, patientID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildPatient(row mapping.Row, cols mapping.TableColumns, log zerolog.Logger) *Patient {
	p := &Patient{}
	for attr, spec := range cols {
		switch attr {
		case "first_name":
			p.FirstName = extractPtr(row, spec)
		case "last_name":
			p.LastName = extractPtr(row, spec)
		case "date_of_birth":
			if v, ok := mapping.Extract(row, spec); ok {
				p.DateOfBirth = ParseDate(v)
				if p.DateOfBirth == nil {
					log.Warn().Str("value", v).Msg("unparseable date_of_birth")
				}
			}
		case "gender":
			p.Gender = extractPtr(row, spec)
		case "phone":
			p.Phone = extractPtr(row, spec)
		case "email":
			p.Email = extractPtr(row, spec)
		case "address":
			p.Address = extractPtr(row, spec)
		case "country":
			p.Country = extractPtr(row, spec)
		}
	}
	return p
}

func extractPtr(row mapping.Row, spec mapping.ColumnSpec) *string {
	if v, ok := mapping.Extract(row, spec); ok {
		return &v
	}
	return nil
}

func (l *Loader) extractDate(row mapping.Row, spec mapping.ColumnSpec, attr string) *time.Time {
	v, ok := mapping.Extract(row, spec)
	if !ok {
		return nil
	}
	d := ParseDate(v)
	if d == nil {
		l.log.Warn().Str("field", attr).Str("value", v).Msg("unparseable date")
	}
	return d
}

// firstConditionName keeps the dependent-record condition reference to a
// single entity: when the cell carries a comma-separated list, the first
// entry names the diagnosis; the full list is handled by
// associateConditions.
func firstConditionName(raw string) string {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		return strings.TrimSpace(raw[:i])
	}
	return strings.TrimSpace(raw)
}
