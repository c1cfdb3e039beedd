package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlanResolver supplies the plan details enrollment needs. Implemented by the
// plan service; declared here so the dependency points outward.
type PlanResolver interface {
	PlanDuration(ctx context.Context, planID uuid.UUID) (days int, active bool, err error)
	PackageExists(ctx context.Context, packageID uuid.UUID) (bool, error)
}

type Service struct {
	repo  Repository
	plans PlanResolver
}

func NewService(repo Repository, plans PlanResolver) *Service {
	return &Service{repo: repo, plans: plans}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.MRN == "" {
		return fmt.Errorf("mrn is required")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.repo.GetByMRN(ctx, mrn)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// EnrollMembership opens a new membership lineage for the patient. The same
// plan may be enrolled repeatedly; each enrollment is its own lineage entry.
func (s *Service) EnrollMembership(ctx context.Context, patientID, planID uuid.UUID, startDate time.Time) (*MembershipEnrollment, error) {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}
	days, active, err := s.plans.PlanDuration(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", planID, err)
	}
	if !active {
		return nil, fmt.Errorf("plan %s is not active", planID)
	}

	if startDate.IsZero() {
		startDate = time.Now()
	}
	e := &MembershipEnrollment{
		PatientID: patientID,
		PlanID:    planID,
		LineageID: uuid.New(),
		StartDate: startDate,
	}
	if days > 0 {
		end := startDate.AddDate(0, 0, days)
		e.EndDate = &end
	}
	if err := s.repo.AddMembership(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AssignPackage opens a new package lineage for the patient.
func (s *Service) AssignPackage(ctx context.Context, patientID, packageID uuid.UUID, assignedDate time.Time) (*PackageAssignment, error) {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}
	exists, err := s.plans.PackageExists(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("package %s not found", packageID)
	}

	if assignedDate.IsZero() {
		assignedDate = time.Now()
	}
	a := &PackageAssignment{
		PatientID:    patientID,
		PackageID:    packageID,
		LineageID:    uuid.New(),
		AssignedDate: assignedDate,
	}
	if err := s.repo.AddPackage(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Memberships(ctx context.Context, patientID uuid.UUID) ([]*MembershipEnrollment, error) {
	return s.repo.ListMemberships(ctx, patientID)
}

func (s *Service) Packages(ctx context.Context, patientID uuid.UUID) ([]*PackageAssignment, error) {
	return s.repo.ListPackages(ctx, patientID)
}
