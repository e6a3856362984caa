package ingest

import "time"

// File processing statuses recorded on the upload log.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// FileLog maps to the file_upload_log table: one row per processing
// attempt, carrying the full audit report for observability.
type FileLog struct {
	FileID            int64     `db:"file_id" json:"file_id"`
	Filename          string    `db:"filename" json:"filename"`
	FileType          string    `db:"file_type" json:"file_type"`
	UploadTime        time.Time `db:"upload_time" json:"upload_time"`
	Status            string    `db:"status" json:"status"`
	MappedTables      []string  `db:"mapped_tables" json:"mapped_tables"`
	MappedColumns     []string  `db:"mapped_columns" json:"mapped_columns"`
	MissingColumns    []string  `db:"missing_columns" json:"missing_columns"`
	ExtraColumns      []string  `db:"extra_columns" json:"extra_columns"`
	EmptyCells        int       `db:"empty_cells" json:"empty_cells"`
	TotalRows         int       `db:"total_rows" json:"total_rows"`
	LocalPath         string    `db:"local_path" json:"local_path"`
	TotalInputColumns int       `db:"total_input_columns" json:"total_input_columns"`
	FileSizeKB        float64   `db:"file_size" json:"size"`
}

// Hospital is a shared reference entity, deduplicated by the
// (name, address) natural key.
type Hospital struct {
	HospitalID      int64   `db:"hospital_id" json:"hospital_id"`
	HospitalName    *string `db:"hospital_name" json:"hospital_name"`
	HospitalAddress *string `db:"hospital_address" json:"hospital_address"`
	FileID          int64   `db:"file_id" json:"file_id"`
}

// Condition is a shared reference entity, deduplicated case-insensitively
// by name. The canonical stored form is lower-case.
type Condition struct {
	ConditionID   int64  `db:"condition_id" json:"condition_id"`
	ConditionName string `db:"condition_name" json:"condition_name"`
}

// Patient maps to the patient table. Every source row produces one
// patient, tagged with the originating file and, when resolved, its
// hospital.
type Patient struct {
	PatientID   int64      `db:"patient_id" json:"patient_id"`
	FirstName   *string    `db:"first_name" json:"first_name"`
	LastName    *string    `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      *string    `db:"gender" json:"gender"`
	Phone       *string    `db:"phone" json:"phone"`
	Email       *string    `db:"email" json:"email"`
	Address     *string    `db:"address" json:"address"`
	Country     *string    `db:"country" json:"country"`
	HospitalID  *int64     `db:"hospital_id" json:"hospital_id"`
	FileID      int64      `db:"file_id" json:"file_id"`
}

// Dependent records. Each references exactly one patient and is created
// only when at least one of its mapped fields resolves to a value.

type Lifestyle struct {
	LifestyleID   int64   `db:"lifestyle_id" json:"lifestyle_id"`
	PatientID     int64   `db:"patient_id" json:"patient_id"`
	SmokingStatus *string `db:"smoking_status" json:"smoking_status"`
	AlcoholUse    *string `db:"alcohol_use" json:"alcohol_use"`
	ExerciseHabit *string `db:"exercise_habit" json:"exercise_habit"`
	Diet          *string `db:"diet" json:"diet"`
	FileID        int64   `db:"file_id" json:"file_id"`
}

type LabResult struct {
	ResultID  int64      `db:"result_id" json:"result_id"`
	PatientID int64      `db:"patient_id" json:"patient_id"`
	TestName  *string    `db:"test_name" json:"test_name"`
	TestValue *string    `db:"test_value" json:"test_value"`
	Unit      *string    `db:"unit" json:"unit"`
	TestDate  *time.Time `db:"test_date" json:"test_date"`
	FileID    int64      `db:"file_id" json:"file_id"`
}

type Treatment struct {
	TreatmentID   int64      `db:"treatment_id" json:"treatment_id"`
	PatientID     int64      `db:"patient_id" json:"patient_id"`
	TreatmentType *string    `db:"treatment_type" json:"treatment_type"`
	StartDate     *time.Time `db:"start_date" json:"start_date"`
	EndDate       *time.Time `db:"end_date" json:"end_date"`
	Outcome       *string    `db:"outcome" json:"outcome"`
	FileID        int64      `db:"file_id" json:"file_id"`
}

type Diagnosis struct {
	DiagnosisID   int64      `db:"diagnosis_id" json:"diagnosis_id"`
	PatientID     int64      `db:"patient_id" json:"patient_id"`
	DiagnosisDate *time.Time `db:"diagnosis_date" json:"diagnosis_date"`
	ConditionID   *int64     `db:"condition_id" json:"condition_id"`
	FileID        int64      `db:"file_id" json:"file_id"`
}

type FamilyHistory struct {
	HistoryID   int64   `db:"history_id" json:"history_id"`
	PatientID   int64   `db:"patient_id" json:"patient_id"`
	Relative    *string `db:"relative" json:"relative"`
	ConditionID *int64  `db:"condition_id" json:"condition_id"`
	FileID      int64   `db:"file_id" json:"file_id"`
}

// PatientCondition is one row of the patient_condition junction table.
type PatientCondition struct {
	PatientID   int64 `db:"patient_id" json:"patient_id"`
	ConditionID int64 `db:"condition_id" json:"condition_id"`
}
