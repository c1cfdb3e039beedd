// Package billing holds the consumption records the benefit ledger reads.
// Records are immutable once created: the billing front-end produces them and
// the reconciler replays them, nothing in this service ever mutates one.
package billing

import (
	"time"

	"github.com/google/uuid"
)

const (
	ServiceTreatment = "Treatment"
	ServicePackage   = "Package"
)

// ConsumptionRecord is one billing entry debiting units from a benefit.
type ConsumptionRecord struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	PatientID          uuid.UUID          `db:"patient_id" json:"patient_id"`
	Service            string             `db:"service" json:"service"`
	Sessions           *int               `db:"sessions" json:"sessions,omitempty"`
	IsFreeConsultation bool               `db:"is_free_consultation" json:"is_free_consultation"`
	PackageName        *string            `db:"package_name" json:"package_name,omitempty"`
	Treatments         []PackageTreatment `json:"treatments,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// PackageTreatment is the per-treatment session breakdown of a package record.
type PackageTreatment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	RecordID      uuid.UUID `db:"record_id" json:"record_id"`
	TreatmentSlug string    `db:"treatment_slug" json:"treatment_slug"`
	Sessions      int       `db:"sessions" json:"sessions"`
}

// Units returns the units this record consumes. Legacy records without an
// explicit session count consume one unit.
func (r *ConsumptionRecord) Units() int {
	if r.Sessions == nil {
		return 1
	}
	return *r.Sessions
}

// MatchesPackage reports whether the record debits the named package.
func (r *ConsumptionRecord) MatchesPackage(name string) bool {
	return r.Service == ServicePackage && r.PackageName != nil && *r.PackageName == name
}
