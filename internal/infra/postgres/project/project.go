package infra_postgres_project

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	usecase_project "github.com/shinchan79/peerpoint/internal/usecase/project"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type fileDTO struct {
	Content string `db:"content"`
}

func (d *Driver) Content(ctx context.Context, projectID string) (string, error) {
	var file fileDTO

	query := `SELECT content FROM project_files WHERE project_id = $1`

	err := d.db.GetContext(ctx, &file, query, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", usecase_project.ErrResourceNotFound
		}
		return "", err
	}

	return file.Content, nil
}

func (d *Driver) Save(ctx context.Context, projectID string, content string) error {
	query := `
		INSERT INTO project_files (project_id, content, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (project_id) DO UPDATE
		SET content = EXCLUDED.content, updated_at = now()
	`

	_, err := d.db.ExecContext(ctx, query, projectID, content)
	return err
}
