package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/benefit"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) benefit.Error {
	t.Helper()
	var de benefit.Error
	if err := json.Unmarshal(rec.Body.Bytes(), &de); err != nil {
		t.Fatalf("response body %q is not an error envelope: %v", rec.Body.String(), err)
	}
	return de
}

func TestCreateConflictKeepsCodeOnTheWire(t *testing.T) {
	f := newFixture()
	source := f.addPatient()
	target := f.addPatient()
	f.enroll(source, 5)
	f.repo.failWith = benefit.Conflictf("transfer aborted by a concurrent update, retry the request")

	h := NewHandler(f.engine)
	body := fmt.Sprintf(`{"source_patient_id":%q,"target_patient_id":%q,"kind":"membership"}`, source, target)
	req := httptest.NewRequest(http.MethodPost, "/benefits/transfers", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	de := decodeEnvelope(t, rec)
	if de.Code != benefit.CodeConcurrencyConflict {
		t.Fatalf("body code = %q, want %q so callers can tell the failure is retryable", de.Code, benefit.CodeConcurrencyConflict)
	}
	if de.Message == "" {
		t.Fatal("envelope message is empty")
	}
}

func TestCreateRejectionKeepsCodeOnTheWire(t *testing.T) {
	f := newFixture()
	source := f.addPatient()
	target := f.addPatient()
	f.enroll(source, 2)
	f.consume(source, 2)

	h := NewHandler(f.engine)
	body := fmt.Sprintf(`{"source_patient_id":%q,"target_patient_id":%q,"kind":"membership"}`, source, target)
	req := httptest.NewRequest(http.MethodPost, "/benefits/transfers", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if de := decodeEnvelope(t, rec); de.Code != benefit.CodeInvalidTransfer {
		t.Fatalf("body code = %q, want %q", de.Code, benefit.CodeInvalidTransfer)
	}
}

func TestGetUnknownTransferWritesNotFoundEnvelope(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.engine)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if de := decodeEnvelope(t, rec); de.Code != benefit.CodeNotFound {
		t.Fatalf("body code = %q, want %q", de.Code, benefit.CodeNotFound)
	}
}

func TestGetReturnsRecordedEvents(t *testing.T) {
	f := newFixture()
	source := f.addPatient()
	target := f.addPatient()
	f.enroll(source, 5)

	res, err := f.engine.Transfer(context.Background(), &Request{
		SourcePatientID: source, TargetPatientID: target, Kind: benefit.KindMembership,
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	h := NewHandler(f.engine)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(res.TransferID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var events []*Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want an out/in pair", len(events))
	}
}
