package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/adocstore/internal/converter"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

const introSource = "= Introduction to AsciiDoc\nDoc Writer <doc@example.com>\n\nA preface about http://asciidoc.org[AsciiDoc].\n\n== First Section\n\n* item 1\n* item 2\n\n[source,ruby]\nputs \"Hello, World!\"\n"

func newAsciidoc(t *testing.T) converter.Converter {
	t.Helper()
	conv, err := converter.New(converter.BackendAsciidoc, converter.Options{})
	require.NoError(t, err)
	return conv
}

type failingConverter struct {
	err error
}

func (f failingConverter) Backend() string { return "broken" }

func (f failingConverter) Convert(ctx context.Context, raw string) (*converter.Result, error) {
	return nil, f.err
}

func TestIngestStoresDocumentAndTranslation(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, newAsciidoc(t))
	fixed := time.Date(2015, 3, 31, 18, 59, 59, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Ingest(context.Background(), 1, introSource)
	require.NoError(t, err)
	require.Equal(t, "Introduction to AsciiDoc", res.Title)
	require.Equal(t, converter.BackendAsciidoc, res.Backend)
	require.NotZero(t, res.ID)

	doc := store.docs[res.ID]
	require.Equal(t, int64(1), doc.OwnerID)
	require.Equal(t, introSource, doc.RawSource)
	require.Equal(t, fixed.Unix(), doc.Ctime)

	tr := store.trs[res.ID]
	require.Equal(t, res.ID, tr.DocumentID)
	require.True(t, strings.HasPrefix(tr.Content, "= Introduction to AsciiDoc"))
	require.True(t, strings.HasSuffix(tr.Content, `puts "Hello, World!"`))
}

func TestIngestDuplicateTitle(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, newAsciidoc(t))

	_, err := svc.Ingest(context.Background(), 1, introSource)
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), 1, introSource)
	require.Error(t, err)
	require.True(t, errors.Is(err, appErr.ErrConflict))
	require.Equal(t, "title", appErr.FieldOf(err))
	require.Equal(t, 1, store.count())
}

func TestIngestSameTitleDifferentOwners(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, newAsciidoc(t))

	first, err := svc.Ingest(context.Background(), 1, introSource)
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), 2, introSource)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, store.count())
}

func TestIngestMissingTitle(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, newAsciidoc(t))

	for _, raw := range []string{"", "just a paragraph\n\nand another", "== Only a section\n"} {
		_, err := svc.Ingest(context.Background(), 1, raw)
		require.Error(t, err, raw)
		require.True(t, errors.Is(err, appErr.ErrInvalid), raw)
		require.Equal(t, "title", appErr.FieldOf(err))
		require.Equal(t, "missing title", appErr.ReasonOf(err))
	}
	require.Equal(t, 0, store.count())
}

func TestIngestRejectsInvalidUTF8(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, newAsciidoc(t))

	_, err := svc.Ingest(context.Background(), 1, "= Broken \xff\xfe title\n")
	require.Error(t, err)
	require.True(t, errors.Is(err, appErr.ErrInvalid))
	require.False(t, errors.Is(err, appErr.ErrStorage))
	require.Equal(t, "source", appErr.FieldOf(err))
	require.Equal(t, 0, store.count())
}

func TestIngestConverterFailure(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, failingConverter{err: errors.New("parse error")})

	_, err := svc.Ingest(context.Background(), 1, introSource)
	require.Error(t, err)
	require.True(t, errors.Is(err, appErr.ErrInvalid))
	require.Equal(t, "source", appErr.FieldOf(err))
	require.Equal(t, 0, store.count())
}

func TestIngestCancelledContext(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, failingConverter{err: context.Canceled})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx, 1, introSource)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errors.Is(err, appErr.ErrInvalid))
}

func TestIngestStorageFailure(t *testing.T) {
	store := newMemStore()
	store.failErr = errBroken
	svc := NewIngestService(store, newAsciidoc(t))

	_, err := svc.Ingest(context.Background(), 1, introSource)
	require.Error(t, err)
	require.True(t, errors.Is(err, appErr.ErrStorage))
	require.True(t, errors.Is(err, errBroken))
	require.False(t, errors.Is(err, appErr.ErrConflict))
}

func TestIngestConcurrentDuplicates(t *testing.T) {
	store := newMemStore()
	svc := NewIngestService(store, newAsciidoc(t))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ingest(context.Background(), 1, introSource)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			if appErr.IsConflict(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, created)
	require.Equal(t, workers-1, conflicts)
	require.Equal(t, 1, store.count())
}
