package ingest

import (
	"context"
	"errors"
	"strings"
	"time"
)

// In-memory repository doubles for loader and service tests. They mimic
// the storage invariants the real implementations rely on: sequential
// ids, natural-key uniqueness, and idempotent junction inserts.

type memFileLogRepo struct {
	nextID int64
	logs   []*FileLog
}

func (r *memFileLogRepo) Create(_ context.Context, l *FileLog) error {
	r.nextID++
	l.FileID = r.nextID
	l.UploadTime = time.Now()
	r.logs = append(r.logs, l)
	return nil
}

func (r *memFileLogRepo) UpdateStatus(_ context.Context, fileID int64, status string) error {
	for _, l := range r.logs {
		if l.FileID == fileID {
			l.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (r *memFileLogRepo) GetByID(_ context.Context, fileID int64) (*FileLog, error) {
	for _, l := range r.logs {
		if l.FileID == fileID {
			return l, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memFileLogRepo) List(_ context.Context, limit, offset int) ([]*FileLog, int, error) {
	total := len(r.logs)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return r.logs[offset:end], total, nil
}

type memHospitalRepo struct {
	nextID    int64
	hospitals []*Hospital
	creates   int
}

func strEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *memHospitalRepo) Create(_ context.Context, h *Hospital) error {
	r.creates++
	r.nextID++
	h.HospitalID = r.nextID
	r.hospitals = append(r.hospitals, h)
	return nil
}

func (r *memHospitalRepo) FindByNameAddress(_ context.Context, name, address *string) (*Hospital, error) {
	for _, h := range r.hospitals {
		if strEq(h.HospitalName, name) && strEq(h.HospitalAddress, address) {
			return h, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memHospitalRepo) GetByIDs(_ context.Context, ids []int64) ([]*Hospital, error) {
	var out []*Hospital
	for _, h := range r.hospitals {
		for _, id := range ids {
			if h.HospitalID == id {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

type memConditionRepo struct {
	nextID     int64
	conditions []*Condition
	creates    int
}

func (r *memConditionRepo) Create(_ context.Context, c *Condition) error {
	r.creates++
	r.nextID++
	c.ConditionID = r.nextID
	r.conditions = append(r.conditions, c)
	return nil
}

func (r *memConditionRepo) FindByName(_ context.Context, name string) (*Condition, error) {
	for _, c := range r.conditions {
		if c.ConditionName == strings.ToLower(name) {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memConditionRepo) GetByIDs(_ context.Context, ids []int64) ([]*Condition, error) {
	var out []*Condition
	for _, c := range r.conditions {
		for _, id := range ids {
			if c.ConditionID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type memPatientRepo struct {
	nextID   int64
	patients []*Patient
	failOn   int64 // create number that returns an error, 0 = never
}

func (r *memPatientRepo) Create(_ context.Context, p *Patient) error {
	if r.failOn > 0 && r.nextID+1 == r.failOn {
		return errors.New("simulated insert failure")
	}
	r.nextID++
	p.PatientID = r.nextID
	r.patients = append(r.patients, p)
	return nil
}

func (r *memPatientRepo) ListByFile(_ context.Context, fileID int64) ([]*Patient, error) {
	var out []*Patient
	for _, p := range r.patients {
		if p.FileID == fileID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memRecordRepo struct {
	nextID          int64
	lifestyles      []*Lifestyle
	labResults      []*LabResult
	treatments      []*Treatment
	diagnoses       []*Diagnosis
	familyHistories []*FamilyHistory
	junction        []*PatientCondition
}

func (r *memRecordRepo) CreateLifestyle(_ context.Context, rec *Lifestyle) error {
	r.nextID++
	rec.LifestyleID = r.nextID
	r.lifestyles = append(r.lifestyles, rec)
	return nil
}

func (r *memRecordRepo) CreateLabResult(_ context.Context, rec *LabResult) error {
	r.nextID++
	rec.ResultID = r.nextID
	r.labResults = append(r.labResults, rec)
	return nil
}

func (r *memRecordRepo) CreateTreatment(_ context.Context, rec *Treatment) error {
	r.nextID++
	rec.TreatmentID = r.nextID
	r.treatments = append(r.treatments, rec)
	return nil
}

func (r *memRecordRepo) CreateDiagnosis(_ context.Context, rec *Diagnosis) error {
	r.nextID++
	rec.DiagnosisID = r.nextID
	r.diagnoses = append(r.diagnoses, rec)
	return nil
}

func (r *memRecordRepo) CreateFamilyHistory(_ context.Context, rec *FamilyHistory) error {
	r.nextID++
	rec.HistoryID = r.nextID
	r.familyHistories = append(r.familyHistories, rec)
	return nil
}

func (r *memRecordRepo) AddPatientCondition(_ context.Context, patientID, conditionID int64) error {
	for _, pc := range r.junction {
		if pc.PatientID == patientID && pc.ConditionID == conditionID {
			return nil
		}
	}
	r.junction = append(r.junction, &PatientCondition{PatientID: patientID, ConditionID: conditionID})
	return nil
}

func (r *memRecordRepo) ListLifestylesByFile(_ context.Context, fileID int64) ([]*Lifestyle, error) {
	var out []*Lifestyle
	for _, rec := range r.lifestyles {
		if rec.FileID == fileID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) ListLabResultsByFile(_ context.Context, fileID int64) ([]*LabResult, error) {
	var out []*LabResult
	for _, rec := range r.labResults {
		if rec.FileID == fileID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) ListTreatmentsByFile(_ context.Context, fileID int64) ([]*Treatment, error) {
	var out []*Treatment
	for _, rec := range r.treatments {
		if rec.FileID == fileID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) ListDiagnosesByFile(_ context.Context, fileID int64) ([]*Diagnosis, error) {
	var out []*Diagnosis
	for _, rec := range r.diagnoses {
		if rec.FileID == fileID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) ListFamilyHistoriesByFile(_ context.Context, fileID int64) ([]*FamilyHistory, error) {
	var out []*FamilyHistory
	for _, rec := range r.familyHistories {
		if rec.FileID == fileID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRecordRepo) ListPatientConditionsByFile(_ context.Context, fileID int64) ([]*PatientCondition, error) {
	return r.junction, nil
}

// passTransactor runs the function directly, with no real transaction.
type passTransactor struct{}

func (passTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
