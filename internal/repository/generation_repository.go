package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/KnuggetDeveloper/infograph/internal/models"
)

type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Create inserts a pending generation (empty image data) and assigns its id.
func (r *GenerationRepository) Create(ctx context.Context, userID int64, prompt string) (*models.Generation, error) {
	id := uuid.NewString()
	const query = `
INSERT INTO generations (id, user_id, prompt, image_data)
VALUES (?, ?, ?, '')`
	if _, err := r.db.ExecContext(ctx, query, id, userID, prompt); err != nil {
		return nil, fmt.Errorf("insert generation: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *GenerationRepository) FindByID(ctx context.Context, id string) (*models.Generation, error) {
	const query = `
SELECT id, user_id, prompt, image_data, COALESCE(share_url, ''), created_at, updated_at
FROM generations WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var g models.Generation
	if err := row.Scan(&g.ID, &g.UserID, &g.Prompt, &g.ImageData, &g.ShareURL, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan generation: %w", err)
	}
	return &g, nil
}

// SetImageData populates the image exactly once. The conditional WHERE keeps
// a second writer from overwriting a populated record; the return value
// reports whether this caller won the write.
func (r *GenerationRepository) SetImageData(ctx context.Context, id string, data string) (bool, error) {
	const query = `
UPDATE generations SET image_data = ?, updated_at = NOW()
WHERE id = ? AND image_data = ''`
	res, err := r.db.ExecContext(ctx, query, data, id)
	if err != nil {
		return false, fmt.Errorf("set image data: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("image data rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *GenerationRepository) SetShareURL(ctx context.Context, id string, url string) error {
	const query = `UPDATE generations SET share_url = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, url, id); err != nil {
		return fmt.Errorf("set share url: %w", err)
	}
	return nil
}
