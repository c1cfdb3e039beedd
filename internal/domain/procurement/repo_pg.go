package procurement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const docCols = `id, doc_type, number, supplier, status, notes, deleted_at, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.DocType, &d.Number, &d.Supplier, &d.Status,
		&d.Notes, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO procurement_documents (id, doc_type, number, supplier, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.DocType, d.Number, d.Supplier, d.Status, d.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+docCols+` FROM procurement_documents WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) List(ctx context.Context, docType DocType, limit, offset int) ([]*Document, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM procurement_documents WHERE doc_type = $1 AND deleted_at IS NULL`,
		docType).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+docCols+` FROM procurement_documents
		WHERE doc_type = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, docType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE procurement_documents SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) LiveNumbers(ctx context.Context, docType DocType) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT number FROM procurement_documents WHERE doc_type = $1 AND deleted_at IS NULL`,
		docType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// ClaimNext is the atomic allocation primitive. GREATEST keeps the counter
// monotonic even when the floor derived from a concurrent scan lags behind.
func (r *repoPG) ClaimNext(ctx context.Context, docType DocType, floor int) (int, error) {
	var claimed int
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO procurement_counters (doc_type, last_value)
		VALUES ($1, $2)
		ON CONFLICT (doc_type) DO UPDATE
		SET last_value = GREATEST(procurement_counters.last_value + 1, EXCLUDED.last_value)
		RETURNING last_value`,
		docType, floor).Scan(&claimed)
	return claimed, err
}

func (r *repoPG) LastValue(ctx context.Context, docType DocType) (int, error) {
	var last int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT last_value FROM procurement_counters WHERE doc_type = $1`,
		docType).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return last, err
}
