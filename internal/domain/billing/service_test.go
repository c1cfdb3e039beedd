package billing

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	records map[uuid.UUID]*ConsumptionRecord
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*ConsumptionRecord)}
}

func (m *mockRepo) Create(_ context.Context, r *ConsumptionRecord) error {
	r.ID = uuid.New()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.records[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*ConsumptionRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRepo) ListByPatients(_ context.Context, ids []uuid.UUID, start, end *time.Time) ([]*ConsumptionRecord, error) {
	idSet := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	var result []*ConsumptionRecord
	for _, r := range m.records {
		if !idSet[r.PatientID] {
			continue
		}
		if start != nil && r.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && r.CreatedAt.After(*end) {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*ConsumptionRecord, int, error) {
	var result []*ConsumptionRecord
	for _, r := range m.records {
		if r.PatientID == patientID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func ptrInt(n int) *int          { return &n }
func ptrStr(s string) *string    { return &s }

func TestCreateRecord_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	pid := uuid.New()

	tests := []struct {
		name    string
		rec     ConsumptionRecord
		wantErr bool
	}{
		{"treatment", ConsumptionRecord{PatientID: pid, Service: ServiceTreatment, Sessions: ptrInt(2)}, false},
		{"free consultation", ConsumptionRecord{PatientID: pid, Service: ServiceTreatment, IsFreeConsultation: true}, false},
		{"package", ConsumptionRecord{PatientID: pid, Service: ServicePackage, PackageName: ptrStr("Physio 10"),
			Sessions: ptrInt(3), Treatments: []PackageTreatment{{TreatmentSlug: "laser", Sessions: 3}}}, false},
		{"missing patient", ConsumptionRecord{Service: ServiceTreatment}, true},
		{"bad service", ConsumptionRecord{PatientID: pid, Service: "Consult"}, true},
		{"zero sessions", ConsumptionRecord{PatientID: pid, Service: ServiceTreatment, Sessions: ptrInt(0)}, true},
		{"package without name", ConsumptionRecord{PatientID: pid, Service: ServicePackage}, true},
		{"bad treatment breakdown", ConsumptionRecord{PatientID: pid, Service: ServicePackage, PackageName: ptrStr("P"),
			Treatments: []PackageTreatment{{TreatmentSlug: "", Sessions: 1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateRecord(ctx, &tt.rec)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnits_DefaultsToOne(t *testing.T) {
	r := &ConsumptionRecord{}
	if r.Units() != 1 {
		t.Errorf("Units() = %d, want 1 for record without explicit sessions", r.Units())
	}
	r.Sessions = ptrInt(4)
	if r.Units() != 4 {
		t.Errorf("Units() = %d, want 4", r.Units())
	}
}

func TestMatchesPackage(t *testing.T) {
	r := &ConsumptionRecord{Service: ServicePackage, PackageName: ptrStr("Physio 10")}
	if !r.MatchesPackage("Physio 10") {
		t.Error("expected match for same package name")
	}
	if r.MatchesPackage("Other") {
		t.Error("did not expect match for different package name")
	}
	tr := &ConsumptionRecord{Service: ServiceTreatment, PackageName: ptrStr("Physio 10")}
	if tr.MatchesPackage("Physio 10") {
		t.Error("treatment records never match a package")
	}
}
