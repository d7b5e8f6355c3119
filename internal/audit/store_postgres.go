package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	txcontext "verifica/pkg/platform/tx"
)

// PostgresStore persists audit entries in the verification_history table.
// Append joins the caller's transaction when one is carried in the context,
// which is how UpdateStatus guarantees a status flip and its history entry
// land together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `
		INSERT INTO verification_history (
			id, verification_id, provider_id, action,
			reviewed_by, reviewed_at, rejection_reason, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.VerificationID,
		entry.ProviderID,
		string(entry.Action),
		entry.ReviewedBy,
		entry.ReviewedAt,
		nullIfEmpty(entry.RejectionReason),
		entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByVerification(ctx context.Context, verificationID string) ([]Entry, error) {
	query := `
		SELECT id, verification_id, provider_id, action,
			   reviewed_by, reviewed_at, rejection_reason, notes
		FROM verification_history
		WHERE verification_id = $1
		ORDER BY reviewed_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, verificationID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, verification_id, provider_id, action,
			   reviewed_by, reviewed_at, rejection_reason, notes
		FROM verification_history
		ORDER BY reviewed_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			action string
			reason sql.NullString
		)
		err := rows.Scan(
			&entry.ID,
			&entry.VerificationID,
			&entry.ProviderID,
			&action,
			&entry.ReviewedBy,
			&entry.ReviewedAt,
			&reason,
			&entry.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = Action(action)
		entry.RejectionReason = reason.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
