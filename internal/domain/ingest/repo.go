package ingest

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that matched nothing.
var ErrNotFound = errors.New("not found")

// FileLogRepository persists the append-only upload log.
type FileLogRepository interface {
	Create(ctx context.Context, l *FileLog) error
	UpdateStatus(ctx context.Context, fileID int64, status string) error
	GetByID(ctx context.Context, fileID int64) (*FileLog, error)
	List(ctx context.Context, limit, offset int) ([]*FileLog, int, error)
}

// HospitalRepository provides creation and natural-key lookup of
// hospitals. FindByNameAddress matches both fields exactly, including
// null, and returns ErrNotFound when nothing matches.
type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	FindByNameAddress(ctx context.Context, name, address *string) (*Hospital, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Hospital, error)
}

// ConditionRepository provides creation and case-insensitive lookup of
// medical conditions. FindByName returns ErrNotFound when nothing
// matches.
type ConditionRepository interface {
	Create(ctx context.Context, c *Condition) error
	FindByName(ctx context.Context, name string) (*Condition, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Condition, error)
}

// PatientRepository creates patient rows and retrieves them per source
// file. There is no update path: patients are immutable once loaded.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	ListByFile(ctx context.Context, fileID int64) ([]*Patient, error)
}

// RecordRepository creates the per-patient dependent records and the
// patient-condition associations, and reads them back per source file.
type RecordRepository interface {
	CreateLifestyle(ctx context.Context, r *Lifestyle) error
	CreateLabResult(ctx context.Context, r *LabResult) error
	CreateTreatment(ctx context.Context, r *Treatment) error
	CreateDiagnosis(ctx context.Context, r *Diagnosis) error
	CreateFamilyHistory(ctx context.Context, r *FamilyHistory) error
	AddPatientCondition(ctx context.Context, patientID, conditionID int64) error

	ListLifestylesByFile(ctx context.Context, fileID int64) ([]*Lifestyle, error)
	ListLabResultsByFile(ctx context.Context, fileID int64) ([]*LabResult, error)
	ListTreatmentsByFile(ctx context.Context, fileID int64) ([]*Treatment, error)
	ListDiagnosesByFile(ctx context.Context, fileID int64) ([]*Diagnosis, error)
	ListFamilyHistoriesByFile(ctx context.Context, fileID int64) ([]*FamilyHistory, error)
	ListPatientConditionsByFile(ctx context.Context, fileID int64) ([]*PatientCondition, error)
}
