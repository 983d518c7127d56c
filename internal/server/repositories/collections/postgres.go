package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/posts"
)

// Collections have no drafts.
var columns = access.Columns{Owner: "c.owner_id", Visibility: "c.visibility"}

const selectCollection = `SELECT c.id, c.owner_id, c.name, c.description, c.visibility, c.cover_url, c.created_at, c.updated_at FROM collections c`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Collection) (*models.Collection, error) {

	query :=
		`INSERT INTO collections (owner_id, name, description, visibility, cover_url)
         VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.OwnerID, c.Name, c.Description, string(c.Visibility), c.CoverURL).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(s scanner) (*models.Collection, error) {
	c := &models.Collection{}
	var vis string
	var cover sql.NullString
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &vis, &cover, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Visibility = models.Visibility(vis)
	c.CoverURL = cover.String
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx, selectCollection+" WHERE c.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Collection) error {
	query :=
		`UPDATE collections SET name = $2, description = $3, visibility = $4, cover_url = NULLIF($5, ''), updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Description, string(c.Visibility), c.CoverURL).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return execOne(r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, filter *access.ListFilter, page models.Page) ([]*models.Collection, error) {
	page = page.Normalize()
	pred, args := filter.SQL(columns, 2)

	query := fmt.Sprintf(`%s WHERE c.owner_id = $1 AND %s ORDER BY c.created_at DESC, c.id LIMIT %d OFFSET %d`,
		selectCollection, pred, page.Limit, page.Offset)

	rows, err := r.db.QueryContext(ctx, query, append([]any{ownerID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) AddPost(ctx context.Context, collectionID, postID string) error {
	query :=
		`INSERT INTO collection_posts (collection_id, post_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, collectionID, postID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemovePost(ctx context.Context, collectionID, postID string) error {
	return execOne(r.db.ExecContext(ctx,
		`DELETE FROM collection_posts WHERE collection_id = $1 AND post_id = $2`, collectionID, postID))
}

func (r *PostgresRepository) ListPosts(ctx context.Context, collectionID string, filter *access.ListFilter, page models.Page) ([]*models.Post, error) {
	page = page.Normalize()
	pred, args := filter.SQL(posts.Columns, 2)

	query := fmt.Sprintf(`SELECT p.id, p.owner_id, p.title, p.body, p.visibility, p.is_draft, p.created_at, p.updated_at
		 FROM collection_posts cp JOIN posts p ON p.id = cp.post_id
		 WHERE cp.collection_id = $1 AND %s
		 ORDER BY cp.added_at DESC, p.id LIMIT %d OFFSET %d`, pred, page.Limit, page.Offset)

	rows, err := r.db.QueryContext(ctx, query, append([]any{collectionID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Post
	for rows.Next() {
		p := &models.Post{}
		var vis string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Body, &vis, &p.IsDraft, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Visibility = models.Visibility(vis)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func execOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
