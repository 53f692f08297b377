package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/comments"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/images"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/posts"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Images(db dbx.DBTX) images.Repository
	Comments(db dbx.DBTX) comments.Repository
}
