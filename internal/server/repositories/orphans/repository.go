// Package orphans stores side effects whose compensation failed so an
// operator can clean them up later.
package orphans

import (
	"context"

	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// Repository defines operations for recording, listing, and resolving orphans.
type Repository interface {
	// Record stores o. The caller fills in ID and CreatedAt.
	Record(ctx context.Context, o *models.Orphan) error

	// List returns at most limit unresolved orphans, newest first.
	// A non-positive limit means no limit.
	List(ctx context.Context, limit int) ([]*models.Orphan, error)

	// Resolve marks an orphan as handled and returns it.
	// Implementations return common.ErrorNotFound when id is unknown or
	// already resolved.
	Resolve(ctx context.Context, id string) (*models.Orphan, error)
}
