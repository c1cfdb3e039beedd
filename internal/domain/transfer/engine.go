package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/benefit"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/platform/metrics"
)

// PatientSource is the patient lookup the engine needs for the target side.
type PatientSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Engine validates and executes benefit transfers.
type Engine struct {
	ledger   *benefit.Ledger
	patients PatientSource
	repo     Repository
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewEngine(ledger *benefit.Ledger, patients PatientSource, repo Repository, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		ledger:   ledger,
		patients: patients,
		repo:     repo,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transfer moves the remaining units of the source patient's benefit to the
// target patient. The transferred grant keeps its lineage id and carries a
// granted override equal to the remainder, so the sum of units available
// across both patients is unchanged by the move.
//
// All validation happens before any write. The write itself is a single
// serializable transaction in the repository; on a concurrency conflict the
// caller may resubmit the identical request, the engine never retries.
func (e *Engine) Transfer(ctx context.Context, req *Request) (*Result, error) {
	res, err := e.transfer(ctx, req)
	e.observe(req.Kind, res, err)
	return res, err
}

func (e *Engine) transfer(ctx context.Context, req *Request) (*Result, error) {
	if req.SourcePatientID == req.TargetPatientID {
		return nil, benefit.InvalidTransferf("source and target patient must differ")
	}
	if _, err := e.patients.GetByID(ctx, req.TargetPatientID); err != nil {
		return nil, benefit.NotFoundf("target patient %s not found", req.TargetPatientID)
	}

	active, err := e.ledger.Resolve(ctx, req.SourcePatientID, req.BenefitID, req.Kind)
	if err != nil {
		return nil, err
	}

	now := e.now()
	bal, err := e.ledger.Balance(ctx, req.SourcePatientID, active.EnrollmentID, req.Kind, now)
	if err != nil {
		return nil, err
	}
	if bal.Expired {
		return nil, benefit.InvalidTransferf("benefit expired on %s and cannot be transferred",
			active.End.Format("2006-01-02"))
	}
	if bal.Remaining <= 0 {
		return nil, benefit.InvalidTransferf("benefit has no remaining units to transfer")
	}

	m := &Mutation{
		TransferID:         uuid.New(),
		Kind:               req.Kind,
		BenefitID:          active.BenefitID,
		LineageID:          active.LineageID,
		SourcePatientID:    req.SourcePatientID,
		TargetPatientID:    req.TargetPatientID,
		SourceEnrollmentID: active.EnrollmentID,
		NewEnrollmentID:    uuid.New(),
		Units:              bal.Remaining,
		Start:              now,
		End:                active.End,
	}
	if err := e.repo.Execute(ctx, m); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("transfer_id", m.TransferID.String()).
		Str("kind", string(m.Kind)).
		Str("lineage_id", m.LineageID.String()).
		Str("source_patient_id", m.SourcePatientID.String()).
		Str("target_patient_id", m.TargetPatientID.String()).
		Int("units", m.Units).
		Msg("benefit transferred")

	return &Result{
		TransferID:      m.TransferID,
		Kind:            m.Kind,
		BenefitID:       m.BenefitID,
		LineageID:       m.LineageID,
		SourcePatientID: m.SourcePatientID,
		TargetPatientID: m.TargetPatientID,
		NewEnrollmentID: m.NewEnrollmentID,
		Units:           m.Units,
		CreatedAt:       m.Start,
	}, nil
}

func (e *Engine) observe(kind benefit.Kind, res *Result, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = benefit.AsError(err).Code
	}
	e.metrics.TransfersTotal.WithLabelValues(string(kind), outcome).Inc()
	if res != nil {
		e.metrics.TransferredUnits.Add(float64(res.Units))
	}
}

// History returns the patient's transfer events, newest first.
func (e *Engine) History(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	if _, err := e.patients.GetByID(ctx, patientID); err != nil {
		return nil, 0, benefit.NotFoundf("patient %s not found", patientID)
	}
	events, total, err := e.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, benefit.Persistencef("list transfers: %v", err)
	}
	return events, total, nil
}

// Get returns the out/in event pair recorded for a single transfer.
func (e *Engine) Get(ctx context.Context, transferID uuid.UUID) ([]*Event, error) {
	events, err := e.repo.GetByTransferID(ctx, transferID)
	if err != nil {
		return nil, benefit.Persistencef("load transfer: %v", err)
	}
	if len(events) == 0 {
		return nil, benefit.NotFoundf("transfer %s not found", transferID)
	}
	return events, nil
}
