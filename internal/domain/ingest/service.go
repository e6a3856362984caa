package ingest

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"

	"github.com/hri/hri/internal/domain/mapping"
	"github.com/hri/hri/internal/domain/schema"
	"github.com/hri/hri/internal/platform/filestore"
	"github.com/hri/hri/internal/platform/llm"
)

// Transactor runs a function inside a storage transaction. The whole
// row loop of a file load commits or rolls back as one unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates the two phases of an upload: the stateless
// mapping preview and the transactional processing/commit.
type Service struct {
	registry  *schema.Registry
	store     filestore.Store
	suggester llm.Suggester
	tx        Transactor
	logs      FileLogRepository
	loader    *Loader
	patients  PatientRepository
	records   RecordRepository
	hospitals HospitalRepository
	condition ConditionRepository
	log       zerolog.Logger
}

func NewService(
	registry *schema.Registry,
	store filestore.Store,
	suggester llm.Suggester,
	tx Transactor,
	logs FileLogRepository,
	loader *Loader,
	patients PatientRepository,
	records RecordRepository,
	hospitals HospitalRepository,
	conditions ConditionRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		store:     store,
		suggester: suggester,
		tx:        tx,
		logs:      logs,
		loader:    loader,
		patients:  patients,
		records:   records,
		hospitals: hospitals,
		condition: conditions,
		log:       log,
	}
}

// sampleSize is how many rows accompany the headers to the mapping
// suggestion service.
const sampleSize = 5

// PreviewResult is returned by the mapping preview phase. The candidate
// mapping is a suggestion: the caller confirms or edits it before
// processing.
type PreviewResult struct {
	FileName        string          `json:"file_name"`
	FileType        string          `json:"file_type"`
	Mapping         mapping.Mapping `json:"mapping"`
	ExpectedColumns []string        `json:"expected_columns"`
	SampleData      []mapping.Row   `json:"sample_data"`
	TotalRows       int             `json:"total_rows"`
	LocalPath       string          `json:"local_path"`
}

// ProcessResult is returned after a successful load.
type ProcessResult struct {
	Message string          `json:"message"`
	Rows    int             `json:"rows"`
	Audit   *mapping.Report `json:"audit"`
	FileID  int64           `json:"file_id"`
}

// Preview stores the uploaded file, parses it, and asks the mapping
// suggestion service for a candidate mapping over the headers and a
// small sample. No data is loaded; a failed preview leaves only the
// stored file behind.
func (s *Service) Preview(ctx context.Context, filename string, content io.Reader) (*PreviewResult, error) {
	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Save(filename, content)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	table, err := s.parseStored(info.Name, fileType)
	if err != nil {
		return nil, err
	}

	sample := table.Rows
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	suggested, err := s.suggester.SuggestMapping(ctx, table.Headers, sample)
	if err != nil {
		s.log.Error().Err(err).Str("file", info.Name).Msg("mapping suggestion failed")
		return nil, fmt.Errorf("mapping suggestion: %w", err)
	}

	return &PreviewResult{
		FileName:        info.Name,
		FileType:        fileType,
		Mapping:         suggested,
		ExpectedColumns: s.registry.ExpectedColumns(),
		SampleData:      sample,
		TotalRows:       len(table.Rows),
		LocalPath:       info.Path,
	}, nil
}

// Process loads the previously stored file under the user-confirmed
// final mapping. It audits the mapping, records the upload log, then
// runs the loader inside one transaction; on failure the batch rolls
// back and the log row is marked failed.
func (s *Service) Process(ctx context.Context, filename string, final mapping.Mapping) (*ProcessResult, error) {
	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Stat(filename)
	if err != nil {
		return nil, err
	}

	table, err := s.parseStored(info.Name, fileType)
	if err != nil {
		return nil, err
	}

	report := mapping.Audit(s.registry.Tables(), table.Headers, final, table.Rows)

	fileLog := &FileLog{
		Filename:          info.Name,
		FileType:          fileType,
		Status:            StatusProcessed,
		MappedTables:      report.MappedTables,
		MappedColumns:     report.MappedColumns,
		MissingColumns:    report.MissingColumns,
		ExtraColumns:      report.ExtraColumns,
		EmptyCells:        report.EmptyCells,
		TotalRows:         len(table.Rows),
		LocalPath:         info.Path,
		TotalInputColumns: report.TotalColumnCount,
		FileSizeKB:        roundKB(info.Size),
	}
	if err := s.logs.Create(ctx, fileLog); err != nil {
		return nil, fmt.Errorf("record upload log: %w", err)
	}

	err = s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.loader.Load(txCtx, final, table.Rows, fileLog.FileID)
	})
	if err != nil {
		s.log.Error().Err(err).Int64("file_id", fileLog.FileID).Msg("ingestion failed, batch rolled back")
		if upErr := s.logs.UpdateStatus(ctx, fileLog.FileID, StatusFailed); upErr != nil {
			s.log.Error().Err(upErr).Int64("file_id", fileLog.FileID).Msg("failed to mark upload log")
		}
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	s.log.Info().
		Int64("file_id", fileLog.FileID).
		Int("rows", len(table.Rows)).
		Int("mapped_columns", report.MappedColumnCount).
		Int("empty_cells", report.EmptyCells).
		Msg("file processed")

	return &ProcessResult{
		Message: "File processed and data inserted successfully.",
		Rows:    len(table.Rows),
		Audit:   &report,
		FileID:  fileLog.FileID,
	}, nil
}

// ListLogs returns upload log entries, newest first.
func (s *Service) ListLogs(ctx context.Context, limit, offset int) ([]*FileLog, int, error) {
	return s.logs.List(ctx, limit, offset)
}

// PatientView is a patient with its hospital resolved inline.
type PatientView struct {
	Patient
	Hospital *Hospital `json:"hospital,omitempty"`
}

// PatientConditionView is one junction row with the condition inline.
type PatientConditionView struct {
	PatientID   int64      `json:"patient_id"`
	ConditionID int64      `json:"condition_id"`
	Condition   *Condition `json:"condition,omitempty"`
}

// FileData gathers every normalized record produced from one source
// file.
type FileData struct {
	Patients          []*PatientView          `json:"patient"`
	Lifestyles        []*Lifestyle            `json:"lifestyle,omitempty"`
	LabResults        []*LabResult            `json:"lab_result,omitempty"`
	Treatments        []*Treatment            `json:"treatment,omitempty"`
	Diagnoses         []*Diagnosis            `json:"diagnosis,omitempty"`
	FamilyHistories   []*FamilyHistory        `json:"family_history,omitempty"`
	PatientConditions []*PatientConditionView `json:"patient_condition,omitempty"`
}

// GetFileData returns the full record graph loaded from one file, or
// ErrNotFound when the file produced no patients.
func (s *Service) GetFileData(ctx context.Context, fileID int64) (*FileData, error) {
	patients, err := s.patients.ListByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return nil, ErrNotFound
	}

	hospitalIDs := make([]int64, 0, len(patients))
	seen := make(map[int64]bool)
	for _, p := range patients {
		if p.HospitalID != nil && !seen[*p.HospitalID] {
			seen[*p.HospitalID] = true
			hospitalIDs = append(hospitalIDs, *p.HospitalID)
		}
	}
	hospitals, err := s.hospitals.GetByIDs(ctx, hospitalIDs)
	if err != nil {
		return nil, err
	}
	hospitalByID := make(map[int64]*Hospital, len(hospitals))
	for _, h := range hospitals {
		hospitalByID[h.HospitalID] = h
	}

	data := &FileData{}
	for _, p := range patients {
		view := &PatientView{Patient: *p}
		if p.HospitalID != nil {
			view.Hospital = hospitalByID[*p.HospitalID]
		}
		data.Patients = append(data.Patients, view)
	}

	if data.Lifestyles, err = s.records.ListLifestylesByFile(ctx, fileID); err != nil {
		return nil, err
	}
	if data.LabResults, err = s.records.ListLabResultsByFile(ctx, fileID); err != nil {
		return nil, err
	}
	if data.Treatments, err = s.records.ListTreatmentsByFile(ctx, fileID); err != nil {
		return nil, err
	}
	if data.Diagnoses, err = s.records.ListDiagnosesByFile(ctx, fileID); err != nil {
		return nil, err
	}
	if data.FamilyHistories, err = s.records.ListFamilyHistoriesByFile(ctx, fileID); err != nil {
		return nil, err
	}

	junction, err := s.records.ListPatientConditionsByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(junction) > 0 {
		condIDs := make([]int64, 0, len(junction))
		seenCond := make(map[int64]bool)
		for _, pc := range junction {
			if !seenCond[pc.ConditionID] {
				seenCond[pc.ConditionID] = true
				condIDs = append(condIDs, pc.ConditionID)
			}
		}
		conditions, err := s.condition.GetByIDs(ctx, condIDs)
		if err != nil {
			return nil, err
		}
		condByID := make(map[int64]*Condition, len(conditions))
		for _, c := range conditions {
			condByID[c.ConditionID] = c
		}
		for _, pc := range junction {
			data.PatientConditions = append(data.PatientConditions, &PatientConditionView{
				PatientID:   pc.PatientID,
				ConditionID: pc.ConditionID,
				Condition:   condByID[pc.ConditionID],
			})
		}
	}

	return data, nil
}

// OpenStored streams a previously uploaded file back to the caller.
func (s *Service) OpenStored(filename string) (io.ReadCloser, error) {
	return s.store.Open(filename)
}

func (s *Service) parseStored(name, fileType string) (*Table, error) {
	f, err := s.store.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(fileType, f)
}

func roundKB(sizeBytes int64) float64 {
	return math.Round(float64(sizeBytes)/1024*1000) / 1000
}
