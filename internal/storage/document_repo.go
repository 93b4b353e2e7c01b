package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"manualqa/internal/models"
	"manualqa/internal/util"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) CreateDocument(ctx context.Context, userID, filename string) (models.Document, error) {
	doc := models.Document{
		DocumentID: uuid.NewString(),
		UserID:     userID,
		Filename:   filename,
	}
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO documents (document_id, user_id, filename)
VALUES ($1, $2, $3)
RETURNING created_at`, doc.DocumentID, doc.UserID, doc.Filename).Scan(&doc.CreatedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepo) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT document_id::text, user_id, filename, created_at
FROM documents
WHERE user_id=$1
ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.DocumentID, &d.UserID, &d.Filename, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepo) GetDocumentOwner(ctx context.Context, documentID string) (string, error) {
	var owner string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT user_id FROM documents WHERE document_id=$1`, documentID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("document %s not found", documentID)
	}
	if err != nil {
		return "", fmt.Errorf("get document owner: %w", err)
	}
	return owner, nil
}

// DeleteDocument removes a document; chunks cascade at the schema level.
func (r *DocumentRepo) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE document_id=$1`, documentID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteOwnedDocument deletes only when userID owns the document.
func (r *DocumentRepo) DeleteOwnedDocument(ctx context.Context, documentID, userID string) error {
	owner, err := r.GetDocumentOwner(ctx, documentID)
	if err != nil {
		return err
	}
	if owner != userID {
		return fmt.Errorf("delete document %s: %w", documentID, util.ErrUnauthorized)
	}
	if _, err := r.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	return nil
}
