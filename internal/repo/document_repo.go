package repo

import (
	"context"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/adocstore/internal/model"
	"github.com/xxxsen/adocstore/internal/pkg/dbutil"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sqlx.DB
}

func NewDocumentRepo(db *sqlx.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) TitleExists(ctx context.Context, ownerID int64, title string) (bool, error) {
	return titleExists(ctx, r.db, ownerID, title)
}

func titleExists(ctx context.Context, ext sqlx.ExtContext, ownerID int64, title string) (bool, error) {
	where := map[string]interface{}{
		"owner_id": ownerID,
		"title":    title,
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id"})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(ext, sqlStr, args)
	var ids []int64
	if err := sqlx.SelectContext(ctx, ext, &ids, sqlStr, args...); err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// InsertDocumentAndTranslation stores both records in one transaction. The
// title check runs inside the transaction and the unique index on
// (owner_id, title) rejects a concurrent writer that passed the check too.
func (r *DocumentRepo) InsertDocumentAndTranslation(ctx context.Context, doc *model.Document, tr *model.Translation) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := titleExists(ctx, tx, doc.OwnerID, doc.Title)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, appErr.Conflict("title", "title already exists")
	}

	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{{
		"owner_id":   doc.OwnerID,
		"title":      doc.Title,
		"raw_source": doc.RawSource,
		"ctime":      doc.Ctime,
	}})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(tx, sqlStr+" RETURNING id", args)
	var id int64
	if err := tx.QueryRowxContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		if dbutil.IsConflict(err) {
			return 0, appErr.Conflict("title", "title already exists")
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}

	sqlStr, args, err = builder.BuildInsert("translations", []map[string]interface{}{{
		"document_id": id,
		"backend":     tr.Backend,
		"content":     tr.Content,
	}})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(tx, sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("insert translation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if dbutil.IsConflict(err) {
			return 0, appErr.Conflict("title", "title already exists")
		}
		return 0, fmt.Errorf("commit: %w", err)
	}
	doc.ID = id
	tr.DocumentID = id
	return id, nil
}

func (r *DocumentRepo) FindTranslationByTitle(ctx context.Context, ownerID int64, title string) (*model.Translation, error) {
	sqlStr, args := dbutil.Finalize(r.db,
		"SELECT tr.document_id, tr.backend, tr.content FROM translations tr "+
			"JOIN documents d ON d.id = tr.document_id WHERE d.owner_id = ? AND d.title = ?",
		[]interface{}{ownerID, title})
	var tr model.Translation
	if err := r.db.GetContext(ctx, &tr, sqlStr, args...); err != nil {
		if dbutil.IsNoRows(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &tr, nil
}

func (r *DocumentRepo) ListDocuments(ctx context.Context, ownerID int64) ([]model.DocumentSummary, error) {
	sqlStr, args := dbutil.Finalize(r.db,
		"SELECT d.id, d.owner_id, t.email AS owner, d.title, d.ctime FROM documents d "+
			"JOIN tenants t ON t.id = d.owner_id WHERE d.owner_id = ? ORDER BY d.id ASC",
		[]interface{}{ownerID})
	docs := make([]model.DocumentSummary, 0)
	if err := r.db.SelectContext(ctx, &docs, sqlStr, args...); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentRepo) Count(ctx context.Context, ownerID int64) (int, error) {
	sqlStr, args := dbutil.Finalize(r.db, "SELECT COUNT(1) FROM documents WHERE owner_id = ?", []interface{}{ownerID})
	var count int
	if err := r.db.GetContext(ctx, &count, sqlStr, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// ListUntranslated returns ids of documents that have no translation row.
func (r *DocumentRepo) ListUntranslated(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.SelectContext(ctx, &ids,
		"SELECT d.id FROM documents d LEFT JOIN translations tr ON tr.document_id = d.id "+
			"WHERE tr.document_id IS NULL ORDER BY d.id ASC")
	if err != nil {
		return nil, err
	}
	return ids, nil
}
