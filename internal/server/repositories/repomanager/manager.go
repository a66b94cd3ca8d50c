package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/bonuses"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/foundcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/specialcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/subscriptions"
)

// RepositoryManager vends repositories bound either to the shared connection
// (Conn) or to the handle passed into a WithTx callback.
type RepositoryManager interface {
	dbx.Transactor
	RunMigrations(ctx context.Context) error
	Conn() dbx.DBTX
	Files(db dbx.DBTX) files.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	Bonuses(db dbx.DBTX) bonuses.Repository
	Redemptions(db dbx.DBTX) redemptions.Repository
	SpecialCodes(db dbx.DBTX) specialcodes.Repository
	FoundCodes(db dbx.DBTX) foundcodes.Repository
}
