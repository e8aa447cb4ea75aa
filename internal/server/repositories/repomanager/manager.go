// Package repomanager wires repository constructors to a database handle
// and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/drivegate/internal/dbx"
	"github.com/dmitrijs2005/drivegate/internal/server/repositories/orphans"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Orphans(db dbx.DBTX) orphans.Repository
}
