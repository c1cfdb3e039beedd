package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository exposes create and read only. Consumption records are immutable:
// there is deliberately no Update or Delete.
type Repository interface {
	Create(ctx context.Context, r *ConsumptionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConsumptionRecord, error)
	// ListByPatients returns the records of all given patients inside the
	// window, ordered by creation time ascending. A nil bound is open.
	ListByPatients(ctx context.Context, patientIDs []uuid.UUID, start, end *time.Time) ([]*ConsumptionRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ConsumptionRecord, int, error)
}
