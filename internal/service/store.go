package service

import (
	"context"

	"github.com/xxxsen/adocstore/internal/model"
)

// DocumentStore is the persistence contract the ingestion and retrieval
// services rely on. InsertDocumentAndTranslation must be atomic: on a duplicate
// (owner, title) it fails with ErrConflict and writes nothing. ListDocuments
// may return rows in any order; RetrievalService.List sorts them by id.
type DocumentStore interface {
	TitleExists(ctx context.Context, ownerID int64, title string) (bool, error)
	InsertDocumentAndTranslation(ctx context.Context, doc *model.Document, tr *model.Translation) (int64, error)
	FindTranslationByTitle(ctx context.Context, ownerID int64, title string) (*model.Translation, error)
	ListDocuments(ctx context.Context, ownerID int64) ([]model.DocumentSummary, error)
}
