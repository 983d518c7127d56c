package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/dbx"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {

	query :=
		`INSERT INTO users (username, display_name, bio)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.UserName, p.DisplayName, p.Bio).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

const selectProfile = `SELECT id, username, display_name, bio, avatar_url, created_at FROM users`

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.Profile, error) {
	var avatar sql.NullString
	p := &models.Profile{}

	err := r.db.QueryRowContext(ctx, selectProfile+" "+where, arg).
		Scan(&p.ID, &p.UserName, &p.DisplayName, &p.Bio, &avatar, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.AvatarURL = avatar.String
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.get(ctx, "WHERE id = $1", id)
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*models.Profile, error) {
	return r.get(ctx, "WHERE username = $1", userName)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	query :=
		`UPDATE users SET display_name = $2, bio = $3
		 WHERE id = $1
		 `

	return execOne(r.db.ExecContext(ctx, query, p.ID, p.DisplayName, p.Bio))
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, ref string) error {
	query :=
		`UPDATE users SET avatar_url = NULLIF($2, '')
		 WHERE id = $1
		 `

	return execOne(r.db.ExecContext(ctx, query, id, ref))
}

// execOne maps a zero-row update to common.ErrorNotFound.
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
