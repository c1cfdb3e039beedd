package benefit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/billing"
)

// Kind discriminates the two consumable benefit families.
type Kind string

const (
	KindMembership Kind = "membership"
	KindPackage    Kind = "package"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMembership, KindPackage:
		return Kind(s), nil
	default:
		return "", InvalidTransferf("unknown benefit kind %q", s)
	}
}

// Window bounds the consumption records considered for an allowance. A nil
// bound is open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Allowance describes the granted side of a benefit for reconciliation.
type Allowance struct {
	Kind        Kind
	Granted     int
	PackageName string // matches package consumption records; empty for memberships
	Window      Window
}

// ConsumptionSource is the read-only stream of billing records.
type ConsumptionSource interface {
	ListByPatients(ctx context.Context, patientIDs []uuid.UUID, start, end *time.Time) ([]*billing.ConsumptionRecord, error)
}

// UsageReconciler computes how many units of an allowance have been consumed.
// It is a pure function of the stored records: calling it never writes, so it
// is idempotent, and its result never exceeds the allowance granted.
type UsageReconciler struct {
	records ConsumptionSource
}

func NewUsageReconciler(records ConsumptionSource) *UsageReconciler {
	return &UsageReconciler{records: records}
}

// UsedUnits sums consumption for the allowance across all given patients.
// Passing both the current holder and the transfer source yields the usage of
// the whole lineage, since consumption done before a transfer stays on the
// source patient's records.
//
// The explicitly flagged records win when any exist. When none do (records
// predating the flag), the fallback replays all Treatment/Package records in
// creation order, capping each record's contribution at the allowance still
// remaining, so the replay is deterministic and never exceeds the grant.
func (r *UsageReconciler) UsedUnits(ctx context.Context, patientIDs []uuid.UUID, a Allowance) (int, error) {
	if a.Granted <= 0 {
		return 0, nil
	}

	records, err := r.records.ListByPatients(ctx, patientIDs, a.Window.Start, a.Window.End)
	if err != nil {
		return 0, Persistencef("list consumption records: %v", err)
	}

	flagged := 0
	for _, rec := range records {
		if r.explicitMatch(rec, a) {
			flagged += rec.Units()
		}
	}
	if flagged > 0 {
		if flagged > a.Granted {
			return a.Granted, nil
		}
		return flagged, nil
	}

	return replay(records, a.Granted), nil
}

func (r *UsageReconciler) explicitMatch(rec *billing.ConsumptionRecord, a Allowance) bool {
	switch a.Kind {
	case KindMembership:
		return rec.IsFreeConsultation
	case KindPackage:
		return rec.MatchesPackage(a.PackageName)
	}
	return false
}

// replay is the backward-compatibility attribution: records already arrive in
// ascending creation order, so the accumulation is FIFO across the window.
func replay(records []*billing.ConsumptionRecord, granted int) int {
	used := 0
	for _, rec := range records {
		if rec.Service != billing.ServiceTreatment && rec.Service != billing.ServicePackage {
			continue
		}
		remaining := granted - used
		if remaining <= 0 {
			break
		}
		units := rec.Units()
		if units > remaining {
			units = remaining
		}
		used += units
	}
	return used
}
