package billing

import (
	"context"
	"time"

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

const recordCols = `id, patient_id, service, sessions, is_free_consultation, package_name, created_at`

func (r *repoPG) scanRecord(row pgx.Row) (*ConsumptionRecord, error) {
	var rec ConsumptionRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.Service, &rec.Sessions,
		&rec.IsFreeConsultation, &rec.PackageName, &rec.CreatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *ConsumptionRecord) error {
	rec.ID = uuid.New()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consumption_records
			(id, patient_id, service, sessions, is_free_consultation, package_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.PatientID, rec.Service, rec.Sessions,
		rec.IsFreeConsultation, rec.PackageName, rec.CreatedAt); err != nil {
		return err
	}
	for i := range rec.Treatments {
		tr := &rec.Treatments[i]
		tr.ID = uuid.New()
		tr.RecordID = rec.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO consumption_package_items (id, record_id, treatment_slug, sessions)
			VALUES ($1, $2, $3, $4)`,
			tr.ID, tr.RecordID, tr.TreatmentSlug, tr.Sessions); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ConsumptionRecord, error) {
	rec, err := r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM consumption_records WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadTreatments(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *repoPG) loadTreatments(ctx context.Context, rec *ConsumptionRecord) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, record_id, treatment_slug, sessions
		FROM consumption_package_items WHERE record_id = $1`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tr PackageTreatment
		if err := rows.Scan(&tr.ID, &tr.RecordID, &tr.TreatmentSlug, &tr.Sessions); err != nil {
			return err
		}
		rec.Treatments = append(rec.Treatments, tr)
	}
	return rows.Err()
}

func (r *repoPG) ListByPatients(ctx context.Context, patientIDs []uuid.UUID, start, end *time.Time) ([]*ConsumptionRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+`
		FROM consumption_records
		WHERE patient_id = ANY($1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at`, patientIDs, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ConsumptionRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ConsumptionRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consumption_records WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+`
		FROM consumption_records WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*ConsumptionRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}
