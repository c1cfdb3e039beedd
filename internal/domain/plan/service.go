package plan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	plans    PlanRepository
	packages PackageRepository
}

func NewService(plans PlanRepository, packages PackageRepository) *Service {
	return &Service{plans: plans, packages: packages}
}

// -- MembershipPlan --

func (s *Service) CreatePlan(ctx context.Context, p *MembershipPlan) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.FreeConsultations < 0 {
		return fmt.Errorf("free_consultations cannot be negative")
	}
	if p.DiscountPercentage != nil && (*p.DiscountPercentage < 0 || *p.DiscountPercentage > 100) {
		return fmt.Errorf("discount_percentage must be between 0 and 100")
	}
	p.Active = true
	return s.plans.Create(ctx, p)
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*MembershipPlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) UpdatePlan(ctx context.Context, p *MembershipPlan) error {
	if p.FreeConsultations < 0 {
		return fmt.Errorf("free_consultations cannot be negative")
	}
	return s.plans.Update(ctx, p)
}

// DeletePlan removes a plan that no transfer references. Plans with transfer
// history must be deactivated instead so transferred grants stay resolvable.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	referenced, err := s.plans.ReferencedByTransfer(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("plan is referenced by a benefit transfer; deactivate it instead")
	}
	return s.plans.Delete(ctx, id)
}

func (s *Service) DeactivatePlan(ctx context.Context, id uuid.UUID) error {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Active = false
	return s.plans.Update(ctx, p)
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool, limit, offset int) ([]*MembershipPlan, int, error) {
	return s.plans.List(ctx, activeOnly, limit, offset)
}

// -- TreatmentPackage --

func (s *Service) CreatePackage(ctx context.Context, p *TreatmentPackage) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("at least one treatment item is required")
	}
	seen := make(map[string]bool, len(p.Items))
	for i := range p.Items {
		item := &p.Items[i]
		if item.TreatmentSlug == "" {
			return fmt.Errorf("treatment_slug is required")
		}
		if item.Sessions <= 0 {
			return fmt.Errorf("sessions must be positive for treatment %s", item.TreatmentSlug)
		}
		if seen[item.TreatmentSlug] {
			return fmt.Errorf("duplicate treatment %s in package", item.TreatmentSlug)
		}
		seen[item.TreatmentSlug] = true
		item.Position = i
	}
	p.Active = true
	return s.packages.Create(ctx, p)
}

func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*TreatmentPackage, error) {
	return s.packages.GetByID(ctx, id)
}

func (s *Service) UpdatePackage(ctx context.Context, p *TreatmentPackage) error {
	return s.packages.Update(ctx, p)
}

// DeletePackage removes a package that no transfer references, mirroring
// DeletePlan.
func (s *Service) DeletePackage(ctx context.Context, id uuid.UUID) error {
	referenced, err := s.packages.ReferencedByTransfer(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("package is referenced by a benefit transfer; deactivate it instead")
	}
	return s.packages.Delete(ctx, id)
}

func (s *Service) DeactivatePackage(ctx context.Context, id uuid.UUID) error {
	p, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Active = false
	return s.packages.Update(ctx, p)
}

func (s *Service) ListPackages(ctx context.Context, activeOnly bool, limit, offset int) ([]*TreatmentPackage, int, error) {
	return s.packages.List(ctx, activeOnly, limit, offset)
}
