// Package imgpostgres keeps metadata of stored images in Postgres
package imgpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

const selectColumns = `image_uid, object_key, image_path, image_type, content_type, size_bytes, original_name, status, preview_key, created_at, updated_at`

func (p PostgresRepo) Create(ctx context.Context, n *model.Image) error {
	query := `INSERT INTO images (image_uid, object_key, image_path, image_type, content_type, size_bytes, original_name, status, preview_key, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := p.DB.Master.ExecContext(ctx, query, n.UID, n.ObjectKey, n.ImagePath, n.ImageType, n.ContentType, n.Size, n.OriginalName, n.Status, n.PreviewKey, n.CreatedAt, n.CreatedAt)
	return err
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Image, error) {
	query := `SELECT ` + selectColumns + `
	FROM images
	WHERE image_uid = $1`
	return p.getOne(ctx, query, id)
}

func (p PostgresRepo) GetByKey(ctx context.Context, key string) (*model.Image, error) {
	query := `SELECT ` + selectColumns + `
	FROM images
	WHERE object_key = $1`
	return p.getOne(ctx, query, key)
}

func (p PostgresRepo) getOne(ctx context.Context, query string, arg any) (*model.Image, error) {
	var image model.Image

	err := p.DB.QueryRowContext(ctx, query, arg).Scan(&image.UID,
		&image.ObjectKey,
		&image.ImagePath,
		&image.ImageType,
		&image.ContentType,
		&image.Size,
		&image.OriginalName,
		&image.Status,
		&image.PreviewKey,
		&image.CreatedAt,
		&image.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrImageNotFound
		default:
			return nil, err // 500
		}
	}
	return &image, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM images
	WHERE image_uid = $1`

	res, err := p.DB.Master.ExecContext(ctx, query, id)
	if err != nil {
		return err // 500
	}
	return expectOneRow(res)
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE images SET status = $1, updated_at = now() WHERE image_uid = $2`

	res, err := p.DB.Master.ExecContext(ctx, query, newStat, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Image) error {
	query := `UPDATE images SET status = $1, updated_at = $2, preview_key = $3 WHERE image_uid = $4`

	res, err := p.DB.Master.ExecContext(ctx, query, input.Status, input.UpdatedAt, input.PreviewKey, input.UID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT image_uid
	FROM images
	WHERE status IN ($1, $2)
	AND updated_at < $3
	LIMIT $4`

	idleSince := time.Now().UTC().Add(-model.OrphanAge)
	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, idleSince, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return model.ErrImageNotFound // 404
	}
	return nil
}
