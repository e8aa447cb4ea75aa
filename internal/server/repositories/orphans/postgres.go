package orphans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/dbx"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// PostgresRepository keeps orphans in the orphans table over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record inserts o.
func (r *PostgresRepository) Record(ctx context.Context, o *models.Orphan) error {
	query := `
		INSERT INTO orphans (id, kind, owner, bucket, object_id, operation, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query,
		o.ID, o.Kind, o.Owner, o.Bucket, o.ObjectID, o.Operation, o.Reason, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

// List returns unresolved orphans, newest first. LIMIT NULL means no limit.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.Orphan, error) {
	query := `
		SELECT id, kind, owner, bucket, object_id, operation, reason, created_at
		FROM orphans
		WHERE resolved_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	rows, err := r.db.QueryContext(ctx, query, lim)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []*models.Orphan
	for rows.Next() {
		o := &models.Orphan{}
		if err := rows.Scan(&o.ID, &o.Kind, &o.Owner, &o.Bucket, &o.ObjectID, &o.Operation, &o.Reason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

// Resolve stamps resolved_at on an unresolved orphan and returns the row.
// If there is no such row, it returns common.ErrorNotFound.
func (r *PostgresRepository) Resolve(ctx context.Context, id string) (*models.Orphan, error) {
	query := `
		UPDATE orphans
		SET resolved_at = now()
		WHERE id = $1 AND resolved_at IS NULL
		RETURNING id, kind, owner, bucket, object_id, operation, reason, created_at
	`
	o := &models.Orphan{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.Kind, &o.Owner, &o.Bucket, &o.ObjectID, &o.Operation, &o.Reason, &o.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}
