package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	records Repository
}

func NewService(records Repository) *Service {
	return &Service{records: records}
}

func (s *Service) CreateRecord(ctx context.Context, r *ConsumptionRecord) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.Service != ServiceTreatment && r.Service != ServicePackage {
		return fmt.Errorf("invalid service: %s", r.Service)
	}
	if r.Sessions != nil && *r.Sessions <= 0 {
		return fmt.Errorf("sessions must be positive")
	}
	if r.Service == ServicePackage && r.PackageName == nil {
		return fmt.Errorf("package_name is required for package records")
	}
	for _, tr := range r.Treatments {
		if tr.TreatmentSlug == "" {
			return fmt.Errorf("treatment_slug is required")
		}
		if tr.Sessions <= 0 {
			return fmt.Errorf("sessions must be positive for treatment %s", tr.TreatmentSlug)
		}
	}
	return s.records.Create(ctx, r)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*ConsumptionRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ConsumptionRecord, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}
