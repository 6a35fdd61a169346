package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/converter"
	"github.com/xxxsen/adocstore/internal/filestore"
	"github.com/xxxsen/adocstore/internal/pkg/timeutil"
)

const manifestSuffix = "manifest.json"

type ExportEntry struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Backend      string `json:"backend"`
	Key          string `json:"key"`
	CreationDate string `json:"creationDate"`
}

type ExportManifest struct {
	OwnerID int64         `json:"owner_id"`
	Owner   string        `json:"owner"`
	Key     string        `json:"-"`
	Entries []ExportEntry `json:"documents"`
}

type ExportService struct {
	store DocumentStore
	files filestore.Store
	dates timeutil.DateFormat
}

func NewExportService(store DocumentStore, files filestore.Store, dates timeutil.DateFormat) *ExportService {
	return &ExportService{store: store, files: files, dates: dates}
}

// Export writes every translation owned by ownerID to the file store, one
// object per document, followed by a manifest describing them.
func (s *ExportService) Export(ctx context.Context, ownerID int64) (*ExportManifest, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("owner_id", ownerID), zap.String("store", s.files.Type()))
	docs, err := s.store.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	manifest := &ExportManifest{
		OwnerID: ownerID,
		Key:     ExportKey(ownerID, 0, manifestSuffix),
		Entries: make([]ExportEntry, 0, len(docs)),
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if manifest.Owner == "" {
			manifest.Owner = doc.Owner
		}
		tr, err := s.store.FindTranslationByTitle(ctx, ownerID, doc.Title)
		if err != nil {
			return nil, fmt.Errorf("load translation %d: %w", doc.ID, err)
		}
		key := ExportKey(ownerID, doc.ID, converter.ExtensionFor(tr.Backend))
		if err := s.save(ctx, key, []byte(tr.Content)); err != nil {
			return nil, err
		}
		manifest.Entries = append(manifest.Entries, ExportEntry{
			ID:           doc.ID,
			Title:        doc.Title,
			Backend:      tr.Backend,
			Key:          key,
			CreationDate: s.dates.FormatUnix(doc.Ctime),
		})
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := s.save(ctx, manifest.Key, data); err != nil {
		return nil, err
	}
	logger.Info("export finished", zap.Int("documents", len(manifest.Entries)), zap.String("manifest", manifest.Key))
	return manifest, nil
}

func (s *ExportService) save(ctx context.Context, key string, data []byte) error {
	if err := s.files.Save(ctx, key, nopCloser{bytes.NewReader(data)}, int64(len(data))); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// ExportKey names an exported object. File store keys are flat, so the owner
// and document ids are folded into the name.
func ExportKey(ownerID, documentID int64, suffix string) string {
	if documentID == 0 {
		return fmt.Sprintf("tenant-%d-%s", ownerID, suffix)
	}
	return fmt.Sprintf("tenant-%d-doc-%d%s", ownerID, documentID, suffix)
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
