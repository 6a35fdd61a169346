package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

func TestGetByTitle(t *testing.T) {
	store := newMemStore()
	ingest := NewIngestService(store, newAsciidoc(t))
	res, err := ingest.Ingest(context.Background(), 1, introSource)
	require.NoError(t, err)

	svc := NewRetrievalService(store)
	doc, err := svc.GetByTitle(context.Background(), 1, "Introduction to AsciiDoc")
	require.NoError(t, err)
	require.Equal(t, res.ID, doc.DocumentID)
	require.Equal(t, "asciidoc", doc.Backend)
	require.Equal(t, store.trs[res.ID].Content, doc.Content)
}

func TestGetByTitleNotFound(t *testing.T) {
	store := newMemStore()
	ingest := NewIngestService(store, newAsciidoc(t))
	_, err := ingest.Ingest(context.Background(), 1, introSource)
	require.NoError(t, err)

	svc := NewRetrievalService(store)
	_, err = svc.GetByTitle(context.Background(), 1, "missing")
	require.True(t, errors.Is(err, appErr.ErrNotFound))

	// other tenants see nothing
	_, err = svc.GetByTitle(context.Background(), 2, "Introduction to AsciiDoc")
	require.True(t, errors.Is(err, appErr.ErrNotFound))
	require.Equal(t, "title", appErr.FieldOf(err))
}

func TestGetByTitleStorageFailure(t *testing.T) {
	store := newMemStore()
	store.failErr = errBroken
	_, err := NewRetrievalService(store).GetByTitle(context.Background(), 1, "x")
	require.True(t, errors.Is(err, appErr.ErrStorage))
	require.False(t, errors.Is(err, appErr.ErrNotFound))
}

func TestListOrderedByID(t *testing.T) {
	store := newMemStore()
	ingest := NewIngestService(store, newAsciidoc(t))
	titles := []string{"Zeta", "Alpha", "Mid"}
	for _, title := range titles {
		_, err := ingest.Ingest(context.Background(), 1, "= "+title+"\n\nbody\n")
		require.NoError(t, err)
	}
	_, err := ingest.Ingest(context.Background(), 2, "= Other\n")
	require.NoError(t, err)

	docs, err := NewRetrievalService(store).List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, docs, len(titles))
	for i, doc := range docs {
		require.Equal(t, titles[i], doc.Title)
		require.Equal(t, "alice@example.com", doc.Owner)
		if i > 0 {
			require.Less(t, docs[i-1].ID, doc.ID)
		}
	}
}

func TestListEmpty(t *testing.T) {
	docs, err := NewRetrievalService(newMemStore()).List(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, docs)
	require.Empty(t, docs)
}

func TestListStorageFailure(t *testing.T) {
	store := newMemStore()
	store.failErr = errBroken
	_, err := NewRetrievalService(store).List(context.Background(), 1)
	require.True(t, errors.Is(err, appErr.ErrStorage))
}

type reversedStore struct {
	*memStore
}

func (r reversedStore) ListDocuments(ctx context.Context, ownerID int64) ([]model.DocumentSummary, error) {
	docs, err := r.memStore.ListDocuments(ctx, ownerID)
	slices.SortFunc(docs, func(a, b model.DocumentSummary) int { return cmp.Compare(b.ID, a.ID) })
	return docs, err
}

func TestListSortsStoreRows(t *testing.T) {
	store := newMemStore()
	ingest := NewIngestService(store, newAsciidoc(t))
	for _, title := range []string{"One", "Two", "Three"} {
		_, err := ingest.Ingest(context.Background(), 1, "= "+title+"\n")
		require.NoError(t, err)
	}
	docs, err := NewRetrievalService(reversedStore{store}).List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, []string{"One", "Two", "Three"}, []string{docs[0].Title, docs[1].Title, docs[2].Title})
}
