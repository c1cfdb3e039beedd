package patient

import (
	"context"

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

const patientCols = `id, mrn, first_name, last_name, phone, has_transferred_out, version, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.Phone,
		&p.HasTransferredOut, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.Version = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, mrn, first_name, last_name, phone, version)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.Phone, p.Version)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE mrn = $1`, mrn))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET mrn=$2, first_name=$3, last_name=$4, phone=$5, has_transferred_out=$6,
		    version=version+1, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.Phone, p.HasTransferredOut)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

const enrollmentCols = `id, patient_id, plan_id, lineage_id, granted_override, start_date, end_date,
	transferred_out, transferred_from, created_at`

func (r *repoPG) AddMembership(ctx context.Context, e *MembershipEnrollment) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_memberships
			(id, patient_id, plan_id, lineage_id, granted_override, start_date, end_date, transferred_out, transferred_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.PatientID, e.PlanID, e.LineageID, e.GrantedOverride,
		e.StartDate, e.EndDate, e.TransferredOut, e.TransferredFrom)
	return err
}

func (r *repoPG) ListMemberships(ctx context.Context, patientID uuid.UUID) ([]*MembershipEnrollment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+enrollmentCols+`
		FROM patient_memberships WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []*MembershipEnrollment
	for rows.Next() {
		var e MembershipEnrollment
		if err := rows.Scan(&e.ID, &e.PatientID, &e.PlanID, &e.LineageID, &e.GrantedOverride,
			&e.StartDate, &e.EndDate, &e.TransferredOut, &e.TransferredFrom, &e.CreatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, &e)
	}
	return enrollments, rows.Err()
}

const assignmentCols = `id, patient_id, package_id, lineage_id, granted_override, assigned_date, end_date,
	transferred_out, transferred_from, created_at`

func (r *repoPG) AddPackage(ctx context.Context, a *PackageAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_packages
			(id, patient_id, package_id, lineage_id, granted_override, assigned_date, end_date, transferred_out, transferred_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.PatientID, a.PackageID, a.LineageID, a.GrantedOverride,
		a.AssignedDate, a.EndDate, a.TransferredOut, a.TransferredFrom)
	return err
}

func (r *repoPG) ListPackages(ctx context.Context, patientID uuid.UUID) ([]*PackageAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assignmentCols+`
		FROM patient_packages WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*PackageAssignment
	for rows.Next() {
		var a PackageAssignment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PackageID, &a.LineageID, &a.GrantedOverride,
			&a.AssignedDate, &a.EndDate, &a.TransferredOut, &a.TransferredFrom, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}
