package procurement

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, docType DocType, limit, offset int) ([]*Document, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	SequenceStore
}

// SequenceStore is the persistence surface the allocator needs.
type SequenceStore interface {
	// LiveNumbers returns the numbers of all non-deleted documents of the
	// type, in no particular order.
	LiveNumbers(ctx context.Context, docType DocType) ([]string, error)
	// ClaimNext atomically advances the type's counter and returns the
	// claimed value. The counter never moves backwards: the returned value
	// is at least floor and strictly greater than any previously claimed.
	ClaimNext(ctx context.Context, docType DocType, floor int) (int, error)
	// LastValue reads the type's counter without advancing it. Zero when
	// no number has been claimed yet.
	LastValue(ctx context.Context, docType DocType) (int, error)
}
