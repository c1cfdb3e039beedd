package plan

import (
	"context"

	"github.com/google/uuid"
)

type PlanRepository interface {
	Create(ctx context.Context, p *MembershipPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*MembershipPlan, error)
	Update(ctx context.Context, p *MembershipPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*MembershipPlan, int, error)
	// ReferencedByTransfer reports whether any benefit transfer references the plan.
	ReferencedByTransfer(ctx context.Context, id uuid.UUID) (bool, error)
}

type PackageRepository interface {
	Create(ctx context.Context, p *TreatmentPackage) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPackage, error)
	Update(ctx context.Context, p *TreatmentPackage) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*TreatmentPackage, int, error)
	ReferencedByTransfer(ctx context.Context, id uuid.UUID) (bool, error)
}
