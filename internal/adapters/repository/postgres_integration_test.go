package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sereno-dns/recurdns/internal/core/domain"
)

func setupAuditTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("recurdns_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	return db, func() {
		db.Close()
		pgContainer.Terminate(ctx)
	}
}

func TestPostgresAuditRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupAuditTestDB(t)
	defer cleanup()

	repo := NewPostgresAuditRepository(db)
	ctx := context.Background()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Calling it twice must stay a no-op; startup always calls it once per run.
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema (second call) failed: %v", err)
	}

	entry := domain.AuditEntry{
		QueriedAt:  time.Now().UTC(),
		ClientAddr: "127.0.0.1:53124",
		QName:      "example.com",
		QType:      "A",
		ResCode:    "NOERROR",
		UpstreamNS: "192.5.6.30",
		DurationMS: 17,
	}
	if err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM dns_audit_log WHERE qname = $1`, "example.com").Scan(&count); err != nil {
		t.Fatalf("verification query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 audit row for example.com, got %d", count)
	}
}
