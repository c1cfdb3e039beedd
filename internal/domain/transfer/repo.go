package transfer

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Execute applies the mutation atomically: invalidate the source lineage
	// row, create the target row, append both ledger events. A competing
	// writer surfaces as a concurrency conflict with no partial state.
	Execute(ctx context.Context, m *Mutation) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error)
	GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*Event, error)
}
