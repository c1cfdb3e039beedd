package benefit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/plan"
)

// EnrollmentSource reads a patient's benefit lineage rows.
type EnrollmentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	ListMemberships(ctx context.Context, patientID uuid.UUID) ([]*patient.MembershipEnrollment, error)
	ListPackages(ctx context.Context, patientID uuid.UUID) ([]*patient.PackageAssignment, error)
}

// CatalogSource reads the plan and package definitions a lineage row points at.
type CatalogSource interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*plan.MembershipPlan, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*plan.TreatmentPackage, error)
}

// Balance is the reconciled state of one benefit lineage on one patient.
type Balance struct {
	Kind            Kind       `json:"kind"`
	BenefitID       uuid.UUID  `json:"benefit_id"`
	BenefitName     string     `json:"benefit_name"`
	EnrollmentID    uuid.UUID  `json:"enrollment_id"`
	LineageID       uuid.UUID  `json:"lineage_id"`
	Granted         int        `json:"granted"`
	Used            int        `json:"used"`
	Remaining       int        `json:"remaining"`
	Expired         bool       `json:"expired"`
	IsTransferred   bool       `json:"is_transferred"`
	TransferredFrom *uuid.UUID `json:"transferred_from,omitempty"`
	WindowStart     time.Time  `json:"window_start"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
}

// Ledger reconciles granted benefits against consumption. All reads, no
// writes: callers that mutate (the transfer engine) resolve through it and
// then re-check inside their own transaction.
type Ledger struct {
	enrollments EnrollmentSource
	catalog     CatalogSource
	usage       *UsageReconciler
}

func NewLedger(enrollments EnrollmentSource, catalog CatalogSource, usage *UsageReconciler) *Ledger {
	return &Ledger{enrollments: enrollments, catalog: catalog, usage: usage}
}

// Resolve finds the patient's active benefit of the given kind. benefitID may
// be uuid.Nil, in which case the most recent direct grant wins over the most
// recent transfer-in. Rows invalidated by a transfer out never resolve.
func (l *Ledger) Resolve(ctx context.Context, patientID, benefitID uuid.UUID, kind Kind) (*ActiveBenefit, error) {
	if _, err := l.enrollments.GetByID(ctx, patientID); err != nil {
		return nil, AsError(err)
	}

	switch kind {
	case KindMembership:
		rows, err := l.enrollments.ListMemberships(ctx, patientID)
		if err != nil {
			return nil, Persistencef("list memberships: %v", err)
		}
		return resolveMembership(rows, benefitID)
	case KindPackage:
		rows, err := l.enrollments.ListPackages(ctx, patientID)
		if err != nil {
			return nil, Persistencef("list package assignments: %v", err)
		}
		return resolvePackage(rows, benefitID)
	default:
		return nil, InvalidTransferf("unknown benefit kind %q", kind)
	}
}

// Balance reconciles the patient's active benefit as of the given instant.
//
// Granted comes from the lineage row's override when the row arrived via
// transfer, otherwise from the plan or package definition. A transferred-in
// row's window opens at the transfer instant and counts only the holder's own
// consumption, so a freshly received benefit reports zero used; pre-transfer
// consumption stays on the source patient's ledger.
func (l *Ledger) Balance(ctx context.Context, patientID, benefitID uuid.UUID, kind Kind, asOf time.Time) (*Balance, error) {
	active, err := l.Resolve(ctx, patientID, benefitID, kind)
	if err != nil {
		return nil, err
	}

	granted, name, pkgName, err := l.grantOf(ctx, active, kind)
	if err != nil {
		return nil, err
	}

	windowStart := active.Start
	if active.TransferredFrom != nil {
		windowStart = active.AcquiredAt
	}

	used, err := l.usage.UsedUnits(ctx, []uuid.UUID{patientID}, Allowance{
		Kind:        kind,
		Granted:     granted,
		PackageName: pkgName,
		Window:      Window{Start: &windowStart, End: active.End},
	})
	if err != nil {
		return nil, err
	}

	b := &Balance{
		Kind:            kind,
		BenefitID:       active.BenefitID,
		BenefitName:     name,
		EnrollmentID:    active.EnrollmentID,
		LineageID:       active.LineageID,
		Granted:         granted,
		Used:            used,
		Remaining:       granted - used,
		IsTransferred:   active.TransferredFrom != nil,
		TransferredFrom: active.TransferredFrom,
		WindowStart:     windowStart,
		WindowEnd:       active.End,
	}
	if active.End != nil && asOf.After(*active.End) {
		b.Expired = true
		b.Remaining = 0
	}
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	return b, nil
}

// LineageUsage reconciles consumption across the whole lineage of a benefit,
// holder and source patient combined. Transfer conservation checks read this.
func (l *Ledger) LineageUsage(ctx context.Context, active *ActiveBenefit, patientID uuid.UUID, kind Kind) (int, error) {
	granted, _, pkgName, err := l.grantOf(ctx, active, kind)
	if err != nil {
		return 0, err
	}
	ids := []uuid.UUID{patientID}
	window := Window{Start: &active.Start, End: active.End}
	if active.TransferredFrom != nil {
		// The source's consumption predates this row's start date, so the
		// window opens unbounded for transferred-in rows.
		ids = append(ids, *active.TransferredFrom)
		window.Start = nil
	}
	return l.usage.UsedUnits(ctx, ids, Allowance{
		Kind:        kind,
		Granted:     granted,
		PackageName: pkgName,
		Window:      window,
	})
}

// grantOf returns the allowance size and display names for a resolved benefit.
// The override on transferred-in rows takes precedence over the catalog, so a
// received remainder never re-grants the full allowance.
func (l *Ledger) grantOf(ctx context.Context, active *ActiveBenefit, kind Kind) (granted int, name, pkgName string, err error) {
	switch kind {
	case KindMembership:
		p, perr := l.catalog.GetPlan(ctx, active.BenefitID)
		if perr != nil {
			return 0, "", "", AsError(perr)
		}
		granted, name = p.FreeConsultations, p.Name
	case KindPackage:
		p, perr := l.catalog.GetPackage(ctx, active.BenefitID)
		if perr != nil {
			return 0, "", "", AsError(perr)
		}
		granted, name, pkgName = p.TotalSessions(), p.Name, p.Name
	default:
		return 0, "", "", InvalidTransferf("unknown benefit kind %q", kind)
	}
	if active.GrantedOverride != nil {
		granted = *active.GrantedOverride
	}
	return granted, name, pkgName, nil
}
