package likes

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestLikeUnlike(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+likes\s*\(user_id,\s*post_id\).*ON\s+CONFLICT\s+DO\s+NOTHING`).
		WithArgs("u", "p").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+likes\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+post_id\s*=\s*\$2$`).
		WithArgs("u", "p").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Like(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Like error: %v", err)
	}
	if err := repo.Unlike(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Unlike error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCountAndHasLiked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT\s+count\(\*\)\s+FROM\s+likes\s+WHERE\s+post_id\s*=\s*\$1$`).WithArgs("p").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT\s+EXISTS`).WithArgs("u", "p").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	n, err := repo.Count(context.Background(), "p")
	if err != nil || n != 7 {
		t.Fatalf("want 7, got %d %v", n, err)
	}
	ok, err := repo.HasLiked(context.Background(), "u", "p")
	if err != nil || !ok {
		t.Fatalf("want true, got %v %v", ok, err)
	}
}

func TestCount_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+likes`).WillReturnError(errors.New("db down"))
	if _, err := repo.Count(context.Background(), "p"); err == nil {
		t.Fatal("want error")
	}
}
