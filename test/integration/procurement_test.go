package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/procurement"
	"github.com/clinicore/clinicore/internal/platform/metrics"
)

func newProcurementService() (*procurement.Service, procurement.Repository) {
	repo := procurement.NewRepoPG(globalDB.Pool)
	alloc := procurement.NewAllocator(repo, metrics.New(), zerolog.Nop())
	return procurement.NewService(repo, alloc, zerolog.Nop()), repo
}

func createDoc(t *testing.T, ctx context.Context, svc *procurement.Service, docType procurement.DocType, supplier string) *procurement.Document {
	t.Helper()
	d := &procurement.Document{DocType: docType, Supplier: supplier}
	if err := svc.CreateDocument(ctx, d); err != nil {
		t.Fatalf("create %s document: %v", docType, err)
	}
	return d
}

func TestProcurement_SequentialNumbering(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("proc")
	createTenantSchema(t, ctx, tenantID)
	defer dropTenantSchema(t, ctx, tenantID)

	svc, _ := newProcurementService()

	err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
		for i, want := range []string{"GRN-000001", "GRN-000002", "GRN-000003"} {
			d := createDoc(t, ctx, svc, procurement.DocTypeGRN, "Acme Supplies")
			if d.Number != want {
				t.Errorf("document %d numbered %s, want %s", i+1, d.Number, want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProcurement_DeletedNumberIsReused(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("proc2")
	createTenantSchema(t, ctx, tenantID)
	defer dropTenantSchema(t, ctx, tenantID)

	svc, _ := newProcurementService()

	err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
		first := createDoc(t, ctx, svc, procurement.DocTypePurchaseOrder, "Acme Supplies")
		second := createDoc(t, ctx, svc, procurement.DocTypePurchaseOrder, "Acme Supplies")
		createDoc(t, ctx, svc, procurement.DocTypePurchaseOrder, "Acme Supplies")

		if err := svc.Delete(ctx, second.ID); err != nil {
			t.Fatalf("delete document: %v", err)
		}

		// The freed slot is filled before the counter advances.
		reused := createDoc(t, ctx, svc, procurement.DocTypePurchaseOrder, "Acme Supplies")
		if reused.Number != second.Number {
			t.Errorf("expected freed number %s to be reused, got %s", second.Number, reused.Number)
		}

		next := createDoc(t, ctx, svc, procurement.DocTypePurchaseOrder, "Acme Supplies")
		if next.Number != "PO-000004" {
			t.Errorf("expected PO-000004 after gap fill, got %s", next.Number)
		}

		_ = first
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProcurement_SharedPrefixDistinctCounters(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("proc3")
	createTenantSchema(t, ctx, tenantID)
	defer dropTenantSchema(t, ctx, tenantID)

	svc, _ := newProcurementService()

	// Purchase requests and purchase returns share the PR prefix but count
	// independently, so both start at PR-000001.
	err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
		req := createDoc(t, ctx, svc, procurement.DocTypePurchaseRequest, "Acme Supplies")
		if req.Number != "PR-000001" {
			t.Errorf("purchase request numbered %s, want PR-000001", req.Number)
		}

		ret := createDoc(t, ctx, svc, procurement.DocTypePurchaseReturn, "Acme Supplies")
		if ret.Number != "PR-000001" {
			t.Errorf("purchase return numbered %s, want PR-000001", ret.Number)
		}

		req2 := createDoc(t, ctx, svc, procurement.DocTypePurchaseRequest, "Acme Supplies")
		if req2.Number != "PR-000002" {
			t.Errorf("second purchase request numbered %s, want PR-000002", req2.Number)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProcurement_CounterSurvivesDeletedMax(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("proc4")
	createTenantSchema(t, ctx, tenantID)
	defer dropTenantSchema(t, ctx, tenantID)

	svc, repo := newProcurementService()

	// Deleting the highest-numbered document leaves no interior gap, and the
	// counter never moves backwards, so the freed number is not reissued.
	err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
		createDoc(t, ctx, svc, procurement.DocTypeGRN, "Acme Supplies")
		top := createDoc(t, ctx, svc, procurement.DocTypeGRN, "Acme Supplies")

		if err := svc.Delete(ctx, top.ID); err != nil {
			t.Fatalf("delete document: %v", err)
		}

		next := createDoc(t, ctx, svc, procurement.DocTypeGRN, "Acme Supplies")
		if next.Number != "GRN-000003" {
			t.Errorf("expected GRN-000003 after deleting the max, got %s", next.Number)
		}

		live, lerr := repo.LiveNumbers(ctx, procurement.DocTypeGRN)
		if lerr != nil {
			return lerr
		}
		if len(live) != 2 {
			t.Errorf("expected 2 live numbers, got %d", len(live))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
