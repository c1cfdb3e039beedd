package benefit

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/patient"
)

// ActiveBenefit is one resolved benefit lineage on a patient, in a shape
// common to memberships and packages. The transfer engine consumes it as the
// thing being moved.
type ActiveBenefit struct {
	EnrollmentID    uuid.UUID
	BenefitID       uuid.UUID // plan or package id
	LineageID       uuid.UUID
	GrantedOverride *int
	Start           time.Time
	End             *time.Time
	TransferredFrom *uuid.UUID
	AcquiredAt      time.Time // when this lineage row was created on the patient
}

// The three sources of current-benefit truth can disagree; this resolver
// makes the precedence explicit and testable per branch:
//  1. an explicitly requested benefit id,
//  2. the most recent direct enrollment,
//  3. the most recent transfer-in.
// Rows already transferred out never resolve: transfer-out invalidates the
// local benefit even when other fields still reference it.
func resolveMembership(enrollments []*patient.MembershipEnrollment, benefitID uuid.UUID) (*ActiveBenefit, error) {
	candidates := make([]*ActiveBenefit, 0, len(enrollments))
	for _, e := range enrollments {
		candidates = append(candidates, &ActiveBenefit{
			EnrollmentID:    e.ID,
			BenefitID:       e.PlanID,
			LineageID:       e.LineageID,
			GrantedOverride: e.GrantedOverride,
			Start:           e.StartDate,
			End:             e.EndDate,
			TransferredFrom: e.TransferredFrom,
			AcquiredAt:      e.CreatedAt,
		})
	}
	matchesExplicit := func(ab *ActiveBenefit) bool {
		return ab.BenefitID == benefitID || ab.EnrollmentID == benefitID
	}
	transferredOut := func(ab *ActiveBenefit) bool {
		for _, e := range enrollments {
			if e.ID == ab.EnrollmentID {
				return e.TransferredOut
			}
		}
		return false
	}
	return resolve(candidates, benefitID, matchesExplicit, transferredOut)
}

func resolvePackage(assignments []*patient.PackageAssignment, benefitID uuid.UUID) (*ActiveBenefit, error) {
	candidates := make([]*ActiveBenefit, 0, len(assignments))
	for _, a := range assignments {
		candidates = append(candidates, &ActiveBenefit{
			EnrollmentID:    a.ID,
			BenefitID:       a.PackageID,
			LineageID:       a.LineageID,
			GrantedOverride: a.GrantedOverride,
			Start:           a.AssignedDate,
			End:             a.EndDate,
			TransferredFrom: a.TransferredFrom,
			AcquiredAt:      a.CreatedAt,
		})
	}
	matchesExplicit := func(ab *ActiveBenefit) bool {
		return ab.BenefitID == benefitID || ab.EnrollmentID == benefitID
	}
	transferredOut := func(ab *ActiveBenefit) bool {
		for _, a := range assignments {
			if a.ID == ab.EnrollmentID {
				return a.TransferredOut
			}
		}
		return false
	}
	return resolve(candidates, benefitID, matchesExplicit, transferredOut)
}

func resolve(candidates []*ActiveBenefit, benefitID uuid.UUID,
	matchesExplicit func(*ActiveBenefit) bool, transferredOut func(*ActiveBenefit) bool) (*ActiveBenefit, error) {

	// Branch 1: explicit benefit id.
	if benefitID != uuid.Nil {
		var match *ActiveBenefit
		sawTransferredOut := false
		for _, ab := range candidates {
			if !matchesExplicit(ab) {
				continue
			}
			if transferredOut(ab) {
				sawTransferredOut = true
				continue
			}
			if match == nil || ab.AcquiredAt.After(match.AcquiredAt) {
				match = ab
			}
		}
		if match != nil {
			return match, nil
		}
		if sawTransferredOut {
			return nil, NotFoundf("benefit %s was transferred out and is no longer held", benefitID)
		}
		return nil, NotFoundf("patient does not hold benefit %s", benefitID)
	}

	// Branch 2: most recent direct enrollment.
	var direct *ActiveBenefit
	for _, ab := range candidates {
		if transferredOut(ab) || ab.TransferredFrom != nil {
			continue
		}
		if direct == nil || ab.AcquiredAt.After(direct.AcquiredAt) {
			direct = ab
		}
	}
	if direct != nil {
		return direct, nil
	}

	// Branch 3: most recent transfer-in.
	var transferred *ActiveBenefit
	for _, ab := range candidates {
		if transferredOut(ab) || ab.TransferredFrom == nil {
			continue
		}
		if transferred == nil || ab.AcquiredAt.After(transferred.AcquiredAt) {
			transferred = ab
		}
	}
	if transferred != nil {
		return transferred, nil
	}

	return nil, NotFoundf("patient holds no active benefit")
}
