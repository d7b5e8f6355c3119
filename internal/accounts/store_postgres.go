package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"verifica/pkg/platform/sentinel"
	txcontext "verifica/pkg/platform/tx"
)

// PostgresStore reads and writes the provider_accounts table. The table is
// owned by the user-management system; this store touches only the columns
// named in the queries below.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetProfile(ctx context.Context, providerID string) (*Profile, error) {
	query := `
		SELECT provider_id, name, email, COALESCE(phone, '')
		FROM provider_accounts
		WHERE provider_id = $1
	`
	var p Profile
	err := s.db.QueryRowContext(ctx, query, providerID).Scan(&p.ProviderID, &p.Name, &p.Email, &p.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get provider profile: %w", err)
	}
	return &p, nil
}

// SetStatus flips the account status with decision metadata. The WHERE guard
// makes repeated writes of the same status no-ops, which keeps the side
// effect safe to re-apply after an ambiguous timeout.
func (s *PostgresStore) SetStatus(ctx context.Context, providerID string, update StatusUpdate) error {
	query := `
		UPDATE provider_accounts
		SET status = $2,
			verified_at = CASE WHEN $2 = 'active' THEN $3 ELSE verified_at END,
			verified_by = CASE WHEN $2 = 'active' THEN $4 ELSE verified_by END,
			rejected_at = CASE WHEN $2 = 'rejected' THEN $3 ELSE rejected_at END,
			rejected_by = CASE WHEN $2 = 'rejected' THEN $4 ELSE rejected_by END,
			rejection_reason = CASE WHEN $2 = 'rejected' THEN $5 ELSE rejection_reason END
		WHERE provider_id = $1 AND status IS DISTINCT FROM $2
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		providerID,
		string(update.Status),
		update.DecidedAt,
		update.DecidedBy,
		nullIfEmpty(update.RejectionReason),
	)
	if err != nil {
		return fmt.Errorf("set provider account status: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
