package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/converter"
	"github.com/xxxsen/adocstore/internal/metrics"
	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

type IngestService struct {
	store     DocumentStore
	converter converter.Converter
	now       func() time.Time
}

func NewIngestService(store DocumentStore, conv converter.Converter) *IngestService {
	return &IngestService{store: store, converter: conv, now: time.Now}
}

type IngestResult struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Backend string `json:"backend"`
}

// Ingest converts raw and stores it for ownerID together with its
// translation. The title comes from the converter; a source without one is
// rejected before anything is written.
func (s *IngestService) Ingest(ctx context.Context, ownerID int64, raw string) (*IngestResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("owner_id", ownerID))
	if !utf8.ValidString(raw) {
		metrics.IngestTotal.WithLabelValues("invalid").Inc()
		return nil, appErr.Validation("source", "source is not valid UTF-8")
	}
	res, err := s.converter.Convert(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("convert document failed", zap.String("backend", s.converter.Backend()), zap.Error(err))
		metrics.IngestTotal.WithLabelValues("invalid").Inc()
		return nil, appErr.Validation("source", "document could not be converted")
	}
	title := strings.TrimSpace(res.Title)
	if title == "" {
		metrics.IngestTotal.WithLabelValues("invalid").Inc()
		return nil, appErr.Validation("title", "missing title")
	}

	doc := &model.Document{
		OwnerID:   ownerID,
		Title:     title,
		RawSource: raw,
		Ctime:     s.now().Unix(),
	}
	tr := &model.Translation{
		Backend: s.converter.Backend(),
		Content: res.Content,
	}
	id, err := s.store.InsertDocumentAndTranslation(ctx, doc, tr)
	if err != nil {
		if appErr.IsConflict(err) {
			logger.Info("duplicate document title", zap.String("title", title))
			metrics.IngestTotal.WithLabelValues("conflict").Inc()
			return nil, appErr.Conflict("title", "document with this title already exists")
		}
		logger.Error("store document failed", zap.String("title", title), zap.Error(err))
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, appErr.Storage(err)
	}
	logger.Info("document stored", zap.Int64("document_id", id), zap.String("title", title), zap.String("backend", tr.Backend))
	metrics.IngestTotal.WithLabelValues("created").Inc()
	return &IngestResult{ID: id, Title: title, Backend: tr.Backend}, nil
}
