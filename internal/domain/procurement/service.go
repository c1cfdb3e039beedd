package procurement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/benefit"
	"github.com/clinicore/clinicore/internal/platform/db"
)

type Service struct {
	repo  Repository
	alloc *Allocator
	log   zerolog.Logger
}

func NewService(repo Repository, alloc *Allocator, log zerolog.Logger) *Service {
	return &Service{repo: repo, alloc: alloc, log: log}
}

// CreateDocument assigns the document its number and persists it. A unique
// violation means another request claimed the same gap between our scan and
// our insert; the number is recomputed once with fresh state. A second
// collision aborts and the caller retries the request.
func (s *Service) CreateDocument(ctx context.Context, d *Document) error {
	if d.Supplier == "" {
		return fmt.Errorf("supplier is required")
	}
	if _, err := ParseDocType(string(d.DocType)); err != nil {
		return err
	}
	if d.Status == "" {
		d.Status = StatusDraft
	}

	d.Number = s.alloc.NextNumber(ctx, d.DocType)
	err := s.repo.Create(ctx, d)
	if err == nil {
		return nil
	}
	if !db.IsUniqueViolation(err) {
		return benefit.Persistencef("create document: %v", err)
	}

	s.log.Debug().
		Str("doc_type", string(d.DocType)).
		Str("number", d.Number).
		Msg("document number raced, recomputing")

	d.ID = uuid.Nil
	d.Number = s.alloc.NextNumber(ctx, d.DocType)
	if err := s.repo.Create(ctx, d); err != nil {
		if db.IsUniqueViolation(err) {
			return benefit.Conflictf("document number contention for %s, retry the request", d.DocType)
		}
		return benefit.Persistencef("create document: %v", err)
	}
	return nil
}

// PreviewNumber shows the next number for a type without claiming it. The
// preview is advisory: a concurrent create may take the number first.
func (s *Service) PreviewNumber(ctx context.Context, docType DocType) (string, error) {
	number, err := s.alloc.PeekNumber(ctx, docType)
	if err != nil {
		return "", benefit.Persistencef("preview number: %v", err)
	}
	return number, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if db.IsNotFound(err) {
		return nil, benefit.NotFoundf("document %s not found", id)
	}
	if err != nil {
		return nil, benefit.Persistencef("load document: %v", err)
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, docType DocType, limit, offset int) ([]*Document, int, error) {
	docs, total, err := s.repo.List(ctx, docType, limit, offset)
	if err != nil {
		return nil, 0, benefit.Persistencef("list documents: %v", err)
	}
	return docs, total, nil
}

// Delete soft-deletes the document, returning its number to the gap pool.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.SoftDelete(ctx, id)
	if db.IsNotFound(err) {
		return benefit.NotFoundf("document %s not found", id)
	}
	if err != nil {
		return benefit.Persistencef("delete document: %v", err)
	}
	return nil
}
