package service

import (
	"context"
	"errors"
	"sync"

	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	docs    map[int64]model.Document
	trs     map[int64]model.Translation
	owners  map[int64]string
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		docs:   map[int64]model.Document{},
		trs:    map[int64]model.Translation{},
		owners: map[int64]string{1: "alice@example.com", 2: "bob@example.com"},
	}
}

func (m *memStore) TitleExists(ctx context.Context, ownerID int64, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	return m.findLocked(ownerID, title) != nil, nil
}

func (m *memStore) findLocked(ownerID int64, title string) *model.Document {
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Title == title {
			d := doc
			return &d
		}
	}
	return nil
}

func (m *memStore) InsertDocumentAndTranslation(ctx context.Context, doc *model.Document, tr *model.Translation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	if m.findLocked(doc.OwnerID, doc.Title) != nil {
		return 0, appErr.Conflict("title", "title already exists")
	}
	m.nextID++
	doc.ID = m.nextID
	tr.DocumentID = doc.ID
	m.docs[doc.ID] = *doc
	m.trs[doc.ID] = *tr
	return doc.ID, nil
}

func (m *memStore) FindTranslationByTitle(ctx context.Context, ownerID int64, title string) (*model.Translation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	doc := m.findLocked(ownerID, title)
	if doc == nil {
		return nil, appErr.ErrNotFound
	}
	tr := m.trs[doc.ID]
	return &tr, nil
}

func (m *memStore) ListDocuments(ctx context.Context, ownerID int64) ([]model.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []model.DocumentSummary
	// map order is random, callers sort
	for _, doc := range m.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		out = append(out, model.DocumentSummary{
			ID:      doc.ID,
			OwnerID: doc.OwnerID,
			Owner:   m.owners[doc.OwnerID],
			Title:   doc.Title,
			Ctime:   doc.Ctime,
		})
	}
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

var errBroken = errors.New("connection refused")
