// Package transfer moves a consumable benefit's remaining units from one
// patient to another. Every transfer appends ledger events and invalidates the
// source lineage row in a single serializable transaction: the repository
// either applies the whole mutation or none of it.
package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/benefit"
)

// Direction marks which side of a transfer an event records.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Event is one side of a transfer in the append-only ledger. A transfer
// writes exactly two events sharing a TransferID, one out and one in, so
// conservation is checkable from the ledger alone: for every pair the units
// match and the lineage is continuous.
type Event struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	TransferID     uuid.UUID    `db:"transfer_id" json:"transfer_id"`
	Kind           benefit.Kind `db:"kind" json:"kind"`
	BenefitID      uuid.UUID    `db:"benefit_id" json:"benefit_id"`
	LineageID      uuid.UUID    `db:"lineage_id" json:"lineage_id"`
	PatientID      uuid.UUID    `db:"patient_id" json:"patient_id"`
	CounterpartyID uuid.UUID    `db:"counterparty_id" json:"counterparty_id"`
	Direction      Direction    `db:"direction" json:"direction"`
	Units          int          `db:"units" json:"units"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// Request is a transfer as submitted by the caller. BenefitID is optional;
// when nil the source patient's active benefit of the kind is resolved.
type Request struct {
	SourcePatientID uuid.UUID    `json:"source_patient_id"`
	TargetPatientID uuid.UUID    `json:"target_patient_id"`
	Kind            benefit.Kind `json:"kind"`
	BenefitID       uuid.UUID    `json:"benefit_id,omitempty"`
}

// Result describes a completed transfer.
type Result struct {
	TransferID      uuid.UUID    `json:"transfer_id"`
	Kind            benefit.Kind `json:"kind"`
	BenefitID       uuid.UUID    `json:"benefit_id"`
	LineageID       uuid.UUID    `json:"lineage_id"`
	SourcePatientID uuid.UUID    `json:"source_patient_id"`
	TargetPatientID uuid.UUID    `json:"target_patient_id"`
	NewEnrollmentID uuid.UUID    `json:"new_enrollment_id"`
	Units           int          `json:"units"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Mutation is the full write set of one transfer, precomputed by the engine
// and applied atomically by the repository.
type Mutation struct {
	TransferID         uuid.UUID
	Kind               benefit.Kind
	BenefitID          uuid.UUID
	LineageID          uuid.UUID
	SourcePatientID    uuid.UUID
	TargetPatientID    uuid.UUID
	SourceEnrollmentID uuid.UUID
	NewEnrollmentID    uuid.UUID
	Units              int
	Start              time.Time
	End                *time.Time
}
