package service

import (
	"cmp"
	"context"
	"slices"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/metrics"
	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

type RetrievalService struct {
	store DocumentStore
}

func NewRetrievalService(store DocumentStore) *RetrievalService {
	return &RetrievalService{store: store}
}

type RenderedDocument struct {
	DocumentID int64
	Title      string
	Backend    string
	Content    string
}

// GetByTitle is scoped to ownerID: a title held only by another tenant is
// reported exactly like one that does not exist.
func (s *RetrievalService) GetByTitle(ctx context.Context, ownerID int64, title string) (*RenderedDocument, error) {
	tr, err := s.store.FindTranslationByTitle(ctx, ownerID, title)
	if err != nil {
		if appErr.IsNotFound(err) {
			metrics.RetrievalTotal.WithLabelValues("get", "not_found").Inc()
			return nil, appErr.NotFound("title", "document not found")
		}
		logutil.GetLogger(ctx).Error("find translation failed",
			zap.Int64("owner_id", ownerID), zap.String("title", title), zap.Error(err))
		metrics.RetrievalTotal.WithLabelValues("get", "error").Inc()
		return nil, appErr.Storage(err)
	}
	metrics.RetrievalTotal.WithLabelValues("get", "ok").Inc()
	return &RenderedDocument{
		DocumentID: tr.DocumentID,
		Title:      title,
		Backend:    tr.Backend,
		Content:    tr.Content,
	}, nil
}

// List returns the owner's documents in ascending id order. A tenant without
// documents gets an empty slice.
func (s *RetrievalService) List(ctx context.Context, ownerID int64) ([]model.DocumentSummary, error) {
	docs, err := s.store.ListDocuments(ctx, ownerID)
	if err != nil {
		logutil.GetLogger(ctx).Error("list documents failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		metrics.RetrievalTotal.WithLabelValues("list", "error").Inc()
		return nil, appErr.Storage(err)
	}
	if docs == nil {
		docs = []model.DocumentSummary{}
	}
	slices.SortStableFunc(docs, func(a, b model.DocumentSummary) int {
		return cmp.Compare(a.ID, b.ID)
	})
	metrics.RetrievalTotal.WithLabelValues("list", "ok").Inc()
	return docs, nil
}
