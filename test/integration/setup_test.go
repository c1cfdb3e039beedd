package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/domain/plan"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool          *pgxpool.Pool
	ConnStr       string
	MigrationsDir string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	tdb, cleanup, err := setupPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	globalDB = tdb
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupPostgresContainer(ctx context.Context) (*testDB, func(), error) {
	migrationsDir := findMigrationsDir()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		cleanup()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return &testDB{
		Pool:          pool,
		ConnStr:       connStr,
		MigrationsDir: migrationsDir,
	}, func() {
		pool.Close()
		cleanup()
	}, nil
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	// test/integration -> repo root
	root := filepath.Join(dir, "..", "..")
	return filepath.Join(root, "migrations")
}

// createTenantSchema creates a new tenant schema and runs all migrations.
func createTenantSchema(t *testing.T, ctx context.Context, tenantID string) {
	t.Helper()
	err := db.CreateTenantSchema(ctx, globalDB.Pool, tenantID, globalDB.MigrationsDir)
	if err != nil {
		t.Fatalf("create tenant schema %s: %v", tenantID, err)
	}
}

// dropTenantSchema drops a tenant schema for cleanup.
func dropTenantSchema(t *testing.T, ctx context.Context, tenantID string) {
	t.Helper()
	schema := fmt.Sprintf("tenant_%s", tenantID)
	_, err := globalDB.Pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
	if err != nil {
		t.Logf("warning: failed to drop schema %s: %v", schema, err)
	}
}

// withTenantConn acquires a connection, sets the search path to the tenant
// schema, and passes it to the callback. The connection is released after the
// callback.
func withTenantConn(ctx context.Context, pool *pgxpool.Pool, tenantID string, fn func(ctx context.Context) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	schema := fmt.Sprintf("tenant_%s", tenantID)
	_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema))
	if err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	// Put the connection into context so repos can find it
	ctx = context.WithValue(ctx, db.DBConnKey, conn)
	return fn(ctx)
}

// uniqueTenantID generates a unique tenant ID for test isolation.
func uniqueTenantID(prefix string) string {
	short := strings.ReplaceAll(uuid.New().String()[:8], "-", "")
	return fmt.Sprintf("%s_%s", prefix, short)
}

// Helper to create a test patient using the repo
func createTestPatient(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, firstName, lastName, mrn string) *patient.Patient {
	t.Helper()
	var result *patient.Patient
	err := withTenantConn(ctx, pool, tenantID, func(ctx context.Context) error {
		repo := patient.NewRepoPG(pool)
		p := &patient.Patient{
			MRN:       mrn,
			FirstName: firstName,
			LastName:  lastName,
		}
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		t.Fatalf("create test patient: %v", err)
	}
	return result
}

// Helper to create a membership plan
func createTestPlan(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, name string, freeConsultations, durationDays int) *plan.MembershipPlan {
	t.Helper()
	var result *plan.MembershipPlan
	err := withTenantConn(ctx, pool, tenantID, func(ctx context.Context) error {
		repo := plan.NewPlanRepoPG(pool)
		p := &plan.MembershipPlan{
			ID:                uuid.New(),
			Name:              name,
			FreeConsultations: freeConsultations,
			DurationDays:      durationDays,
			Active:            true,
		}
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		t.Fatalf("create test plan: %v", err)
	}
	return result
}

// Helper to create a treatment package
func createTestPackage(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, name string, items []plan.PackageItem) *plan.TreatmentPackage {
	t.Helper()
	var result *plan.TreatmentPackage
	err := withTenantConn(ctx, pool, tenantID, func(ctx context.Context) error {
		repo := plan.NewPackageRepoPG(pool)
		p := &plan.TreatmentPackage{
			ID:     uuid.New(),
			Name:   name,
			Active: true,
			Items:  items,
		}
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		t.Fatalf("create test package: %v", err)
	}
	return result
}

// Helper to enroll a patient in a membership plan
func enrollMembership(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID string, patientID, planID uuid.UUID, start time.Time, end *time.Time) *patient.MembershipEnrollment {
	t.Helper()
	var result *patient.MembershipEnrollment
	err := withTenantConn(ctx, pool, tenantID, func(ctx context.Context) error {
		repo := patient.NewRepoPG(pool)
		e := &patient.MembershipEnrollment{
			ID:        uuid.New(),
			PatientID: patientID,
			PlanID:    planID,
			LineageID: uuid.New(),
			StartDate: start,
			EndDate:   end,
		}
		if err := repo.AddMembership(ctx, e); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		t.Fatalf("enroll membership: %v", err)
	}
	return result
}

// Helper to record a free consultation against a patient
func recordConsultation(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID string, patientID uuid.UUID) *billing.ConsumptionRecord {
	t.Helper()
	var result *billing.ConsumptionRecord
	err := withTenantConn(ctx, pool, tenantID, func(ctx context.Context) error {
		repo := billing.NewRepoPG(pool)
		sessions := 1
		r := &billing.ConsumptionRecord{
			PatientID:          patientID,
			Service:            billing.ServiceTreatment,
			Sessions:           &sessions,
			IsFreeConsultation: true,
		}
		if err := repo.Create(ctx, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		t.Fatalf("record consultation: %v", err)
	}
	return result
}

// ptrTime returns a pointer to the given time.
func ptrTime(t time.Time) *time.Time { return &t }
