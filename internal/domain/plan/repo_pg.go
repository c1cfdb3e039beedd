package plan

import (
	"context"
	"fmt"

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

// =========== MembershipPlan Repository ===========

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository { return &planRepoPG{pool: pool} }

func (r *planRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const planCols = `id, name, free_consultations, discount_percentage, duration_days, active, created_at, updated_at`

func (r *planRepoPG) scanPlan(row pgx.Row) (*MembershipPlan, error) {
	var p MembershipPlan
	err := row.Scan(&p.ID, &p.Name, &p.FreeConsultations, &p.DiscountPercentage,
		&p.DurationDays, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *planRepoPG) Create(ctx context.Context, p *MembershipPlan) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO membership_plans (id, name, free_consultations, discount_percentage, duration_days, active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.FreeConsultations, p.DiscountPercentage, p.DurationDays, p.Active)
	return err
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MembershipPlan, error) {
	return r.scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM membership_plans WHERE id = $1`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *MembershipPlan) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE membership_plans
		SET name=$2, free_consultations=$3, discount_percentage=$4, duration_days=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.FreeConsultations, p.DiscountPercentage, p.DurationDays, p.Active)
	return err
}

func (r *planRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM membership_plans WHERE id = $1`, id)
	return err
}

func (r *planRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*MembershipPlan, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE active"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM membership_plans`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+planCols+` FROM membership_plans`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var plans []*MembershipPlan
	for rows.Next() {
		p, err := r.scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, p)
	}
	return plans, total, rows.Err()
}

func (r *planRepoPG) ReferencedByTransfer(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM benefit_transfers WHERE kind = 'membership' AND benefit_id = $1)`, id).
		Scan(&referenced)
	return referenced, err
}

// =========== TreatmentPackage Repository ===========

type packageRepoPG struct{ pool *pgxpool.Pool }

func NewPackageRepoPG(pool *pgxpool.Pool) PackageRepository { return &packageRepoPG{pool: pool} }

func (r *packageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const packageCols = `id, name, active, created_at, updated_at`

func (r *packageRepoPG) scanPackage(row pgx.Row) (*TreatmentPackage, error) {
	var p TreatmentPackage
	err := row.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *packageRepoPG) Create(ctx context.Context, p *TreatmentPackage) error {
	p.ID = uuid.New()
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_packages (id, name, active) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.Active); err != nil {
		return err
	}
	for i := range p.Items {
		item := &p.Items[i]
		item.ID = uuid.New()
		item.PackageID = p.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO package_items (id, package_id, treatment_slug, sessions, position)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, item.PackageID, item.TreatmentSlug, item.Sessions, item.Position); err != nil {
			return fmt.Errorf("insert package item %s: %w", item.TreatmentSlug, err)
		}
	}
	return nil
}

func (r *packageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPackage, error) {
	p, err := r.scanPackage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+packageCols+` FROM treatment_packages WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *packageRepoPG) loadItems(ctx context.Context, p *TreatmentPackage) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, package_id, treatment_slug, sessions, position
		FROM package_items WHERE package_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item PackageItem
		if err := rows.Scan(&item.ID, &item.PackageID, &item.TreatmentSlug, &item.Sessions, &item.Position); err != nil {
			return err
		}
		p.Items = append(p.Items, item)
	}
	return rows.Err()
}

func (r *packageRepoPG) Update(ctx context.Context, p *TreatmentPackage) error {
	if _, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_packages SET name=$2, active=$3, updated_at=NOW() WHERE id = $1`,
		p.ID, p.Name, p.Active); err != nil {
		return err
	}
	if p.Items == nil {
		return nil
	}
	// Items are replaced wholesale on update.
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM package_items WHERE package_id = $1`, p.ID); err != nil {
		return err
	}
	for i := range p.Items {
		item := &p.Items[i]
		item.ID = uuid.New()
		item.PackageID = p.ID
		item.Position = i
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO package_items (id, package_id, treatment_slug, sessions, position)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, item.PackageID, item.TreatmentSlug, item.Sessions, item.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r *packageRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_packages WHERE id = $1`, id)
	return err
}

func (r *packageRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*TreatmentPackage, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE active"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM treatment_packages`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+packageCols+` FROM treatment_packages`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var packages []*TreatmentPackage
	for rows.Next() {
		p, err := r.scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		packages = append(packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, p := range packages {
		if err := r.loadItems(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return packages, total, nil
}

func (r *packageRepoPG) ReferencedByTransfer(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM benefit_transfers WHERE kind = 'package' AND benefit_id = $1)`, id).
		Scan(&referenced)
	return referenced, err
}
