package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)

	AddMembership(ctx context.Context, e *MembershipEnrollment) error
	ListMemberships(ctx context.Context, patientID uuid.UUID) ([]*MembershipEnrollment, error)
	AddPackage(ctx context.Context, a *PackageAssignment) error
	ListPackages(ctx context.Context, patientID uuid.UUID) ([]*PackageAssignment, error)
}
