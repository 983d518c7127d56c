package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

// Columns is how access.ListFilter addresses the posts table aliased "p".
var Columns = access.Columns{Owner: "p.owner_id", Visibility: "p.visibility", Draft: "p.is_draft"}

const selectPost = `SELECT p.id, p.owner_id, p.title, p.body, p.visibility, p.is_draft, p.created_at, p.updated_at FROM posts p`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Post) (*models.Post, error) {

	query :=
		`INSERT INTO posts (owner_id, title, body, visibility, is_draft)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.OwnerID, p.Title, p.Body, string(p.Visibility), p.IsDraft).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.Post, error) {
	p := &models.Post{}
	var vis string
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Body, &vis, &p.IsDraft, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Visibility = models.Visibility(vis)
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, selectPost+" WHERE p.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Post) error {
	query :=
		`UPDATE posts SET title = $2, body = $3, visibility = $4, is_draft = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, p.ID, p.Title, p.Body, string(p.Visibility), p.IsDraft).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
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

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, filter *access.ListFilter, page models.Page) ([]*models.Post, error) {
	page = page.Normalize()
	pred, args := filter.SQL(Columns, 2)

	query := fmt.Sprintf(`%s WHERE p.owner_id = $1 AND %s ORDER BY p.created_at DESC, p.id LIMIT %d OFFSET %d`,
		selectPost, pred, page.Limit, page.Offset)

	return r.list(ctx, query, append([]any{ownerID}, args...)...)
}

func (r *PostgresRepository) Feed(ctx context.Context, filter *access.ListFilter, page models.Page) ([]*models.Post, error) {
	page = page.Normalize()
	pred, args := filter.SQL(Columns, 1)

	query := fmt.Sprintf(`%s WHERE %s ORDER BY p.created_at DESC, p.id LIMIT %d OFFSET %d`,
		selectPost, pred, page.Limit, page.Offset)

	return r.list(ctx, query, args...)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Images(ctx context.Context, postIDs ...string) (map[string][]models.PostImage, error) {
	out := make(map[string][]models.PostImage, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT id, post_id, url, position, is_cover FROM post_images
		 WHERE post_id IN (%s)
		 ORDER BY post_id, position`, dbx.Placeholders(1, len(postIDs)))

	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.PostImage
		if err := rows.Scan(&img.ID, &img.PostID, &img.URL, &img.Position, &img.IsCover); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[img.PostID] = append(out[img.PostID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ReplaceImages(ctx context.Context, postID string, images []models.PostImage) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_images WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query :=
		`INSERT INTO post_images (post_id, url, position, is_cover)
		 VALUES ($1, $2, $3, $4)
		 `

	for _, img := range images {
		if _, err := r.db.ExecContext(ctx, query, postID, img.URL, img.Position, img.IsCover); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
