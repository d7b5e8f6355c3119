package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"verifica/internal/verification"
	"verifica/pkg/platform/sentinel"
	txcontext "verifica/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists verification records in the verifications table.
// Documents live in a JSONB column keyed by document type; the one-record-
// per-provider invariant is backed by a unique index on provider_id, which
// Create surfaces as sentinel.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, provider_id, provider_name, provider_email, COALESCE(provider_phone, ''),
	status, documents, submitted_at, reviewed_at, COALESCE(reviewed_by, ''),
	COALESCE(rejection_reason, '')
`

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*verification.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM verifications WHERE id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetByProviderID(ctx context.Context, providerID string) (*verification.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM verifications WHERE provider_id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, providerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get verification by provider: %w", err)
	}
	return rec, nil
}

// escapeLike neutralizes ILIKE metacharacters so a search for "100%" matches
// the literal text instead of everything. Backslash is the default LIKE
// escape character in postgres.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *PostgresStore) ListAll(ctx context.Context, filter verification.Filter) ([]*verification.Record, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" && filter.Status != "all" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + escapeLike(filter.Search) + "%")
		where = append(where, "(provider_name ILIKE "+p+" OR provider_email ILIKE "+p+" OR COALESCE(provider_phone, '') ILIKE "+p+")")
	}
	if filter.DocumentType != "" {
		where = append(where, "jsonb_array_length(COALESCE(documents -> "+arg(string(filter.DocumentType))+", '[]'::jsonb)) > 0")
	}

	query := `SELECT ` + recordColumns + ` FROM verifications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var records []*verification.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Create(ctx context.Context, record *verification.Record) error {
	docs, err := json.Marshal(record.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	query := `
		INSERT INTO verifications (
			id, provider_id, provider_name, provider_email, provider_phone,
			status, documents, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.ProviderID,
		record.ProviderName,
		record.ProviderEmail,
		nullIfEmpty(record.ProviderPhone),
		string(record.Status),
		docs,
		record.SubmittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// UpdateStatus performs the record transition as a single database
// transaction. The row is locked with FOR UPDATE before the status check,
// so of two concurrent approvals exactly one sees pending; the loser gets
// sentinel.ErrInvalidState after the winner commits. The Precheck and InTx
// callbacks run inside the same transaction.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, transition verification.Transition) (rec *verification.Record, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + recordColumns + ` FROM verifications WHERE id = $1 FOR UPDATE`
	current, err := scanRecord(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock verification: %w", err)
	}
	if current.Status != verification.StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	if transition.Precheck != nil {
		if err = transition.Precheck(current); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE verifications
		SET status = $2, reviewed_at = $3, reviewed_by = $4, rejection_reason = $5
		WHERE id = $1
	`,
		id,
		string(transition.To),
		transition.ReviewedAt,
		transition.ReviewedBy,
		nullIfEmpty(transition.RejectionReason),
	)
	if err != nil {
		return nil, fmt.Errorf("update verification status: %w", err)
	}

	updated := current.Clone()
	updated.Status = transition.To
	reviewedAt := transition.ReviewedAt
	updated.ReviewedAt = &reviewedAt
	updated.ReviewedBy = transition.ReviewedBy
	updated.RejectionReason = transition.RejectionReason

	if transition.InTx != nil {
		if err = transition.InTx(txcontext.WithTx(ctx, tx), updated.Clone()); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

// UpdateDocumentStatus rewrites one document's status inside the JSONB
// column. The row lock keeps concurrent document reviews from losing
// updates to each other.
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id, documentID uuid.UUID, status verification.Status) (rec *verification.Record, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + recordColumns + ` FROM verifications WHERE id = $1 FOR UPDATE`
	current, err := scanRecord(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock verification: %w", err)
	}

	doc, ok := current.FindDocument(documentID)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	doc.Status = status

	docs, err := json.Marshal(current.Documents)
	if err != nil {
		return nil, fmt.Errorf("marshal documents: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE verifications SET documents = $2 WHERE id = $1`, id, docs); err != nil {
		return nil, fmt.Errorf("update documents: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document update: %w", err)
	}
	return current, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*verification.Record, error) {
	var (
		rec    verification.Record
		status string
		docs   []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.ProviderID,
		&rec.ProviderName,
		&rec.ProviderEmail,
		&rec.ProviderPhone,
		&status,
		&docs,
		&rec.SubmittedAt,
		&rec.ReviewedAt,
		&rec.ReviewedBy,
		&rec.RejectionReason,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = verification.Status(status)
	rec.Documents = make(map[verification.DocumentType][]verification.Document)
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &rec.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
	}
	return &rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
