package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hri/hri/internal/domain/mapping"
	"github.com/hri/hri/internal/domain/schema"
	"github.com/hri/hri/internal/platform/filestore"
)

type staticSuggester struct {
	mapping mapping.Mapping
	err     error
	headers []string
	samples int
}

func (s *staticSuggester) SuggestMapping(_ context.Context, headers []string, sample []mapping.Row) (mapping.Mapping, error) {
	s.headers = headers
	s.samples = len(sample)
	if s.err != nil {
		return nil, s.err
	}
	return s.mapping, nil
}

type serviceFixture struct {
	store     filestore.Store
	suggester *staticSuggester
	logs      *memFileLogRepo
	patients  *memPatientRepo
	records   *memRecordRepo
	hospitals *memHospitalRepo
	svc       *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	registry, err := schema.Load()
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}

	f := &serviceFixture{
		store:     filestore.NewMemoryStore(),
		suggester: &staticSuggester{mapping: mapping.Mapping{}},
		logs:      &memFileLogRepo{},
		patients:  &memPatientRepo{},
		records:   &memRecordRepo{},
		hospitals: &memHospitalRepo{},
	}
	conditions := &memConditionRepo{}
	resolver := NewReferenceResolver(f.hospitals, conditions)
	loader := NewLoader(resolver, f.patients, f.records, zerolog.Nop())
	f.svc = NewService(registry, f.store, f.suggester, passTransactor{}, f.logs,
		loader, f.patients, f.records, f.hospitals, conditions, zerolog.Nop())
	return f
}

const sampleCSV = "first name,surname,hospital,conditions\n" +
	"Jane,Doe,General,\"diabetes, hypertension\"\n" +
	"John,Smith,General,diabetes\n"

func sampleMapping() mapping.Mapping {
	return mapping.Mapping{
		"patient": {
			"first_name": mapping.Single("first name"),
			"last_name":  mapping.Single("surname"),
		},
		"hospital": {
			"hospital_name": mapping.Single("hospital"),
		},
		"medical_condition": {
			"condition_name": mapping.Single("conditions"),
		},
	}
}

func TestServicePreview(t *testing.T) {
	f := newServiceFixture(t)
	f.suggester.mapping = sampleMapping()

	res, err := f.svc.Preview(context.Background(), "records.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if res.FileType != "csv" {
		t.Errorf("file_type = %q", res.FileType)
	}
	if res.TotalRows != 2 {
		t.Errorf("total_rows = %d, want 2", res.TotalRows)
	}
	if len(res.SampleData) != 2 {
		t.Errorf("sample rows = %d, want 2", len(res.SampleData))
	}
	if len(f.suggester.headers) != 4 {
		t.Errorf("suggester got %d headers, want 4", len(f.suggester.headers))
	}
	if len(res.ExpectedColumns) == 0 {
		t.Error("expected_columns empty")
	}
	if !f.store.Exists("records.csv") {
		t.Error("uploaded file not stored")
	}
}

func TestServicePreviewSampleCap(t *testing.T) {
	f := newServiceFixture(t)

	var b strings.Builder
	b.WriteString("name\n")
	for i := 0; i < 20; i++ {
		b.WriteString("x\n")
	}
	res, err := f.svc.Preview(context.Background(), "big.csv", strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if res.TotalRows != 20 {
		t.Errorf("total_rows = %d, want 20", res.TotalRows)
	}
	if f.suggester.samples != sampleSize {
		t.Errorf("suggester got %d sample rows, want %d", f.suggester.samples, sampleSize)
	}
}

func TestServicePreviewSuggesterFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.suggester.err = errors.New("quota exceeded")

	_, err := f.svc.Preview(context.Background(), "records.csv", strings.NewReader(sampleCSV))
	if err == nil {
		t.Fatal("expected error")
	}
	// The stored file survives the failed preview and can be retried.
	if !f.store.Exists("records.csv") {
		t.Error("file should remain stored after suggestion failure")
	}
}

func TestServicePreviewUnsupportedType(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Preview(context.Background(), "records.pdf", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("err = %v, want ErrUnsupportedFileType", err)
	}
}

func TestServiceProcess(t *testing.T) {
	f := newServiceFixture(t)
	if _, err := f.store.Save("records.csv", strings.NewReader(sampleCSV)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	res, err := f.svc.Process(context.Background(), "records.csv", sampleMapping())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.Rows != 2 {
		t.Errorf("rows = %d, want 2", res.Rows)
	}
	if res.Audit == nil || res.Audit.MappedColumnCount != 4 {
		t.Errorf("audit = %+v", res.Audit)
	}
	if len(f.patients.patients) != 2 {
		t.Errorf("patients = %d, want 2", len(f.patients.patients))
	}
	if len(f.hospitals.hospitals) != 1 {
		t.Errorf("hospitals = %d, want 1", len(f.hospitals.hospitals))
	}
	// Jane gets two associations, John one (diabetes shared).
	if len(f.records.junction) != 3 {
		t.Errorf("associations = %d, want 3", len(f.records.junction))
	}

	log, err := f.logs.GetByID(context.Background(), res.FileID)
	if err != nil {
		t.Fatalf("log lookup: %v", err)
	}
	if log.Status != StatusProcessed {
		t.Errorf("log status = %q", log.Status)
	}
	if log.TotalRows != 2 {
		t.Errorf("log total_rows = %d", log.TotalRows)
	}
}

func TestServiceProcessFailureMarksLog(t *testing.T) {
	f := newServiceFixture(t)
	f.patients.failOn = 2
	if _, err := f.store.Save("records.csv", strings.NewReader(sampleCSV)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	_, err := f.svc.Process(context.Background(), "records.csv", sampleMapping())
	if err == nil {
		t.Fatal("expected load failure")
	}

	if len(f.logs.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(f.logs.logs))
	}
	if f.logs.logs[0].Status != StatusFailed {
		t.Errorf("log status = %q, want %q", f.logs.logs[0].Status, StatusFailed)
	}
}

func TestServiceProcessMissingFile(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Process(context.Background(), "absent.csv", sampleMapping())
	if !errors.Is(err, filestore.ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestServiceGetFileData(t *testing.T) {
	f := newServiceFixture(t)
	if _, err := f.store.Save("records.csv", strings.NewReader(sampleCSV)); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	res, err := f.svc.Process(context.Background(), "records.csv", sampleMapping())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	data, err := f.svc.GetFileData(context.Background(), res.FileID)
	if err != nil {
		t.Fatalf("GetFileData: %v", err)
	}
	if len(data.Patients) != 2 {
		t.Fatalf("patients = %d, want 2", len(data.Patients))
	}
	if data.Patients[0].Hospital == nil {
		t.Error("hospital not resolved inline")
	}
	if len(data.PatientConditions) != 3 {
		t.Errorf("patient conditions = %d, want 3", len(data.PatientConditions))
	}
	for _, pc := range data.PatientConditions {
		if pc.Condition == nil {
			t.Errorf("condition %d not resolved inline", pc.ConditionID)
		}
	}
}

func TestServiceGetFileDataNotFound(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.GetFileData(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestServiceListLogs(t *testing.T) {
	f := newServiceFixture(t)
	for i := 0; i < 3; i++ {
		if err := f.logs.Create(context.Background(), &FileLog{Filename: "f.csv"}); err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}
	items, total, err := f.svc.ListLogs(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("total = %d items = %d, want 3 and 2", total, len(items))
	}
}
