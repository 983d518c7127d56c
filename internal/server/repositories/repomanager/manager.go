package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/collections"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/comments"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/follows"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/likes"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/posts"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Collections(db dbx.DBTX) collections.Repository
	Follows(db dbx.DBTX) follows.Repository
	Likes(db dbx.DBTX) likes.Repository
	Comments(db dbx.DBTX) comments.Repository
}
