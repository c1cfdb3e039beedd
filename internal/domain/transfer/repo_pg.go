package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/domain/benefit"
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

const eventCols = `id, transfer_id, kind, benefit_id, lineage_id, patient_id, counterparty_id, direction, units, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.TransferID, &e.Kind, &e.BenefitID, &e.LineageID,
		&e.PatientID, &e.CounterpartyID, &e.Direction, &e.Units, &e.CreatedAt)
	return &e, err
}

// Execute runs the whole transfer under serializable isolation. Serialization
// failures and unique violations surface as concurrency conflicts; the caller
// may retry, this method never does.
func (r *repoPG) Execute(ctx context.Context, m *Mutation) error {
	err := db.InSerializableTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.invalidateSource(ctx, m); err != nil {
			return err
		}
		if err := r.createTargetRow(ctx, m); err != nil {
			return err
		}
		if err := r.appendEvents(ctx, m); err != nil {
			return err
		}
		_, err := r.conn(ctx).Exec(ctx, `
			UPDATE patients SET has_transferred_out = true, version = version + 1, updated_at = NOW()
			WHERE id = $1`, m.SourcePatientID)
		return err
	})
	if err == nil {
		return nil
	}
	if de, ok := err.(*benefit.Error); ok {
		return de
	}
	if db.IsSerializationFailure(err) || db.IsUniqueViolation(err) {
		return benefit.Conflictf("transfer aborted by a concurrent update, retry the request")
	}
	return benefit.Persistencef("execute transfer: %v", err)
}

// invalidateSource flips the source lineage row to transferred out. The guard
// on transferred_out = false makes the row a single-shot resource: a second
// transfer of the same row updates zero rows and aborts as a conflict.
func (r *repoPG) invalidateSource(ctx context.Context, m *Mutation) error {
	table, ok := lineageTable(m.Kind)
	if !ok {
		return benefit.InvalidTransferf("unknown benefit kind %q", m.Kind)
	}
	tag, err := r.conn(ctx).Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET transferred_out = true
		WHERE id = $1 AND patient_id = $2 AND transferred_out = false`, table),
		m.SourceEnrollmentID, m.SourcePatientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return benefit.Conflictf("benefit was already transferred by a concurrent request")
	}
	return nil
}

func (r *repoPG) createTargetRow(ctx context.Context, m *Mutation) error {
	switch m.Kind {
	case benefit.KindMembership:
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO patient_memberships
				(id, patient_id, plan_id, lineage_id, granted_override, start_date, end_date, transferred_from)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.NewEnrollmentID, m.TargetPatientID, m.BenefitID, m.LineageID,
			m.Units, m.Start, m.End, m.SourcePatientID)
		return err
	case benefit.KindPackage:
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO patient_packages
				(id, patient_id, package_id, lineage_id, granted_override, assigned_date, end_date, transferred_from)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.NewEnrollmentID, m.TargetPatientID, m.BenefitID, m.LineageID,
			m.Units, m.Start, m.End, m.SourcePatientID)
		return err
	}
	return benefit.InvalidTransferf("unknown benefit kind %q", m.Kind)
}

func (r *repoPG) appendEvents(ctx context.Context, m *Mutation) error {
	for _, side := range []struct {
		patient, counterparty uuid.UUID
		direction             Direction
	}{
		{m.SourcePatientID, m.TargetPatientID, DirectionOut},
		{m.TargetPatientID, m.SourcePatientID, DirectionIn},
	} {
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO benefit_transfers
				(id, transfer_id, kind, benefit_id, lineage_id, patient_id, counterparty_id, direction, units)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), m.TransferID, m.Kind, m.BenefitID, m.LineageID,
			side.patient, side.counterparty, side.direction, m.Units); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM benefit_transfers WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM benefit_transfers
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	return events, total, err
}

func (r *repoPG) GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM benefit_transfers
		WHERE transfer_id = $1
		ORDER BY direction DESC`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func lineageTable(kind benefit.Kind) (string, bool) {
	switch kind {
	case benefit.KindMembership:
		return "patient_memberships", true
	case benefit.KindPackage:
		return "patient_packages", true
	}
	return "", false
}
