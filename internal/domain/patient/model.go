package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the clinic-scoped patient record. Benefit grants live in their
// own lineage rows (MembershipEnrollment, PackageAssignment) rather than
// embedded arrays so transfer history stays independently queryable.
type Patient struct {
	ID                uuid.UUID `db:"id" json:"id"`
	MRN               string    `db:"mrn" json:"mrn"`
	FirstName         string    `db:"first_name" json:"first_name"`
	LastName          string    `db:"last_name" json:"last_name"`
	Phone             *string   `db:"phone" json:"phone,omitempty"`
	HasTransferredOut bool      `db:"has_transferred_out" json:"has_transferred_out"`
	Version           int64     `db:"version" json:"version"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// MembershipEnrollment is one lineage entry of a membership grant. A patient
// may hold several concurrently, including the same plan more than once.
// Rows that arrived via transfer carry the source patient and a granted
// override equal to the transferred remainder, so the transferred grant never
// re-grants the plan's full allowance.
type MembershipEnrollment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PlanID          uuid.UUID  `db:"plan_id" json:"plan_id"`
	LineageID       uuid.UUID  `db:"lineage_id" json:"lineage_id"`
	GrantedOverride *int       `db:"granted_override" json:"granted_override,omitempty"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	EndDate         *time.Time `db:"end_date" json:"end_date,omitempty"`
	TransferredOut  bool       `db:"transferred_out" json:"transferred_out"`
	TransferredFrom *uuid.UUID `db:"transferred_from" json:"transferred_from,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// PackageAssignment is the package counterpart of MembershipEnrollment.
type PackageAssignment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PackageID       uuid.UUID  `db:"package_id" json:"package_id"`
	LineageID       uuid.UUID  `db:"lineage_id" json:"lineage_id"`
	GrantedOverride *int       `db:"granted_override" json:"granted_override,omitempty"`
	AssignedDate    time.Time  `db:"assigned_date" json:"assigned_date"`
	EndDate         *time.Time `db:"end_date" json:"end_date,omitempty"`
	TransferredOut  bool       `db:"transferred_out" json:"transferred_out"`
	TransferredFrom *uuid.UUID `db:"transferred_from" json:"transferred_from,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
