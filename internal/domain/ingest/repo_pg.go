package ingest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hri/hri/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== FileLog Repository ===========

type fileLogRepoPG struct{ pool *pgxpool.Pool }

func NewFileLogRepoPG(pool *pgxpool.Pool) FileLogRepository {
	return &fileLogRepoPG{pool: pool}
}

const fileLogCols = `file_id, filename, file_type, upload_time, status,
	mapped_tables, mapped_columns, missing_columns, extra_columns,
	empty_cells, total_rows, local_path, total_input_columns, file_size`

func scanFileLog(row pgx.Row) (*FileLog, error) {
	var l FileLog
	err := row.Scan(&l.FileID, &l.Filename, &l.FileType, &l.UploadTime, &l.Status,
		&l.MappedTables, &l.MappedColumns, &l.MissingColumns, &l.ExtraColumns,
		&l.EmptyCells, &l.TotalRows, &l.LocalPath, &l.TotalInputColumns, &l.FileSizeKB)
	return &l, err
}

func (r *fileLogRepoPG) Create(ctx context.Context, l *FileLog) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO file_upload_log (filename, file_type, status,
			mapped_tables, mapped_columns, missing_columns, extra_columns,
			empty_cells, total_rows, local_path, total_input_columns, file_size)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING file_id, upload_time`,
		l.Filename, l.FileType, l.Status,
		l.MappedTables, l.MappedColumns, l.MissingColumns, l.ExtraColumns,
		l.EmptyCells, l.TotalRows, l.LocalPath, l.TotalInputColumns, l.FileSizeKB).
		Scan(&l.FileID, &l.UploadTime)
}

func (r *fileLogRepoPG) UpdateStatus(ctx context.Context, fileID int64, status string) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE file_upload_log SET status = $2 WHERE file_id = $1`, fileID, status)
	return err
}

func (r *fileLogRepoPG) GetByID(ctx context.Context, fileID int64) (*FileLog, error) {
	l, err := scanFileLog(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+fileLogCols+` FROM file_upload_log WHERE file_id = $1`, fileID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return l, nil
}

func (r *fileLogRepoPG) List(ctx context.Context, limit, offset int) ([]*FileLog, int, error) {
	q := conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM file_upload_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `SELECT `+fileLogCols+` FROM file_upload_log
		ORDER BY upload_time DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*FileLog
	for rows.Next() {
		l, err := scanFileLog(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

// =========== Hospital Repository ===========

type hospitalRepoPG struct{ pool *pgxpool.Pool }

func NewHospitalRepoPG(pool *pgxpool.Pool) HospitalRepository {
	return &hospitalRepoPG{pool: pool}
}

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO hospital (hospital_name, hospital_address, file_id)
		VALUES ($1,$2,$3)
		RETURNING hospital_id`,
		h.HospitalName, h.HospitalAddress, h.FileID).Scan(&h.HospitalID)
}

func (r *hospitalRepoPG) FindByNameAddress(ctx context.Context, name, address *string) (*Hospital, error) {
	var h Hospital
	// IS NOT DISTINCT FROM so a null name or address still matches exactly.
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT hospital_id, hospital_name, hospital_address, file_id
		FROM hospital
		WHERE hospital_name IS NOT DISTINCT FROM $1
		  AND hospital_address IS NOT DISTINCT FROM $2
		LIMIT 1`, name, address).
		Scan(&h.HospitalID, &h.HospitalName, &h.HospitalAddress, &h.FileID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &h, nil
}

func (r *hospitalRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Hospital, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT hospital_id, hospital_name, hospital_address, file_id
		FROM hospital WHERE hospital_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.HospitalID, &h.HospitalName, &h.HospitalAddress, &h.FileID); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}

// =========== Condition Repository ===========

type conditionRepoPG struct{ pool *pgxpool.Pool }

func NewConditionRepoPG(pool *pgxpool.Pool) ConditionRepository {
	return &conditionRepoPG{pool: pool}
}

func (r *conditionRepoPG) Create(ctx context.Context, c *Condition) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medical_condition (condition_name)
		VALUES ($1)
		RETURNING condition_id`, c.ConditionName).Scan(&c.ConditionID)
}

func (r *conditionRepoPG) FindByName(ctx context.Context, name string) (*Condition, error) {
	var c Condition
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT condition_id, condition_name
		FROM medical_condition
		WHERE lower(condition_name) = lower($1)
		LIMIT 1`, name).Scan(&c.ConditionID, &c.ConditionName)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &c, nil
}

func (r *conditionRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Condition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT condition_id, condition_name
		FROM medical_condition WHERE condition_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Condition
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.ConditionID, &c.ConditionName); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `patient_id, first_name, last_name, date_of_birth, gender,
	phone, email, address, country, hospital_id, file_id`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (first_name, last_name, date_of_birth, gender,
			phone, email, address, country, hospital_id, file_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING patient_id`,
		p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.Address, p.Country, p.HospitalID, p.FileID).
		Scan(&p.PatientID)
}

func (r *patientRepoPG) ListByFile(ctx context.Context, fileID int64) ([]*Patient, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE file_id = $1 ORDER BY patient_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.PatientID, &p.FirstName, &p.LastName, &p.DateOfBirth,
			&p.Gender, &p.Phone, &p.Email, &p.Address, &p.Country,
			&p.HospitalID, &p.FileID); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

// =========== Record Repository ===========

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) CreateLifestyle(ctx context.Context, l *Lifestyle) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO lifestyle (patient_id, smoking_status, alcohol_use, exercise_habit, diet, file_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING lifestyle_id`,
		l.PatientID, l.SmokingStatus, l.AlcoholUse, l.ExerciseHabit, l.Diet, l.FileID).
		Scan(&l.LifestyleID)
}

func (r *recordRepoPG) CreateLabResult(ctx context.Context, lr *LabResult) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO lab_result (patient_id, test_name, test_value, unit, test_date, file_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING result_id`,
		lr.PatientID, lr.TestName, lr.TestValue, lr.Unit, lr.TestDate, lr.FileID).
		Scan(&lr.ResultID)
}

func (r *recordRepoPG) CreateTreatment(ctx context.Context, t *Treatment) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO treatment (patient_id, treatment_type, start_date, end_date, outcome, file_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING treatment_id`,
		t.PatientID, t.TreatmentType, t.StartDate, t.EndDate, t.Outcome, t.FileID).
		Scan(&t.TreatmentID)
}

func (r *recordRepoPG) CreateDiagnosis(ctx context.Context, d *Diagnosis) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO diagnosis (patient_id, diagnosis_date, condition_id, file_id)
		VALUES ($1,$2,$3,$4)
		RETURNING diagnosis_id`,
		d.PatientID, d.DiagnosisDate, d.ConditionID, d.FileID).
		Scan(&d.DiagnosisID)
}

func (r *recordRepoPG) CreateFamilyHistory(ctx context.Context, f *FamilyHistory) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO family_history (patient_id, relative, condition_id, file_id)
		VALUES ($1,$2,$3,$4)
		RETURNING history_id`,
		f.PatientID, f.Relative, f.ConditionID, f.FileID).
		Scan(&f.HistoryID)
}

func (r *recordRepoPG) AddPatientCondition(ctx context.Context, patientID, conditionID int64) error {
	// Junction rows are keyed by the pair; re-adding is a no-op.
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient_condition (patient_id, condition_id)
		VALUES ($1,$2)
		ON CONFLICT (patient_id, condition_id) DO NOTHING`, patientID, conditionID)
	return err
}

func (r *recordRepoPG) ListLifestylesByFile(ctx context.Context, fileID int64) ([]*Lifestyle, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT lifestyle_id, patient_id, smoking_status, alcohol_use, exercise_habit, diet, file_id
		FROM lifestyle WHERE file_id = $1 ORDER BY lifestyle_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Lifestyle
	for rows.Next() {
		var l Lifestyle
		if err := rows.Scan(&l.LifestyleID, &l.PatientID, &l.SmokingStatus,
			&l.AlcoholUse, &l.ExerciseHabit, &l.Diet, &l.FileID); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListLabResultsByFile(ctx context.Context, fileID int64) ([]*LabResult, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT result_id, patient_id, test_name, test_value, unit, test_date, file_id
		FROM lab_result WHERE file_id = $1 ORDER BY result_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LabResult
	for rows.Next() {
		var l LabResult
		if err := rows.Scan(&l.ResultID, &l.PatientID, &l.TestName,
			&l.TestValue, &l.Unit, &l.TestDate, &l.FileID); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListTreatmentsByFile(ctx context.Context, fileID int64) ([]*Treatment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT treatment_id, patient_id, treatment_type, start_date, end_date, outcome, file_id
		FROM treatment WHERE file_id = $1 ORDER BY treatment_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.TreatmentID, &t.PatientID, &t.TreatmentType,
			&t.StartDate, &t.EndDate, &t.Outcome, &t.FileID); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListDiagnosesByFile(ctx context.Context, fileID int64) ([]*Diagnosis, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT diagnosis_id, patient_id, diagnosis_date, condition_id, file_id
		FROM diagnosis WHERE file_id = $1 ORDER BY diagnosis_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.DiagnosisID, &d.PatientID, &d.DiagnosisDate,
			&d.ConditionID, &d.FileID); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListFamilyHistoriesByFile(ctx context.Context, fileID int64) ([]*FamilyHistory, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT history_id, patient_id, relative, condition_id, file_id
		FROM family_history WHERE file_id = $1 ORDER BY history_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*FamilyHistory
	for rows.Next() {
		var f FamilyHistory
		if err := rows.Scan(&f.HistoryID, &f.PatientID, &f.Relative,
			&f.ConditionID, &f.FileID); err != nil {
			return nil, err
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListPatientConditionsByFile(ctx context.Context, fileID int64) ([]*PatientCondition, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT pc.patient_id, pc.condition_id
		FROM patient_condition pc
		JOIN patient p ON p.patient_id = pc.patient_id
		WHERE p.file_id = $1
		ORDER BY pc.patient_id, pc.condition_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PatientCondition
	for rows.Next() {
		var pc PatientCondition
		if err := rows.Scan(&pc.PatientID, &pc.ConditionID); err != nil {
			return nil, err
		}
		items = append(items, &pc)
	}
	return items, rows.Err()
}
