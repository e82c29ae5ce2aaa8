// Package repository provides the Postgres-backed implementation of the
// resolver's audit log.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/sereno-dns/recurdns/internal/core/domain"
)

// PostgresAuditRepository persists one row per query answered, via
// database/sql over jackc/pgx/v5's stdlib driver.
type PostgresAuditRepository struct {
	db *sql.DB
}

// NewPostgresAuditRepository wraps an already-open *sql.DB. The caller
// owns the DB's lifetime.
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

// schemaDDL creates the audit table if it does not already exist. Called
// once at startup; not part of the ports.AuditRecorder contract.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS dns_audit_log (
	id          uuid PRIMARY KEY,
	queried_at  timestamptz NOT NULL,
	client_addr text NOT NULL,
	qname       text NOT NULL,
	qtype       text NOT NULL,
	rescode     text NOT NULL,
	upstream_ns text NOT NULL,
	duration_ms integer NOT NULL
)`

// EnsureSchema creates the audit table if it is missing. Safe to call on
// every startup.
func (r *PostgresAuditRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schemaDDL)
	return err
}

// Record inserts one audit row. It satisfies ports.AuditRecorder.
func (r *PostgresAuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	const query = `INSERT INTO dns_audit_log
		(id, queried_at, client_addr, qname, qtype, rescode, upstream_ns, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		entry.QueriedAt,
		entry.ClientAddr,
		entry.QName,
		entry.QType,
		entry.ResCode,
		entry.UpstreamNS,
		entry.DurationMS,
	)
	return err
}
