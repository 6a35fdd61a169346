package repo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
	"github.com/xxxsen/adocstore/internal/repo"
	"github.com/xxxsen/adocstore/internal/testutil"
)

func newDoc(ownerID int64, title string, ctime int64) (*model.Document, *model.Translation) {
	return &model.Document{
			OwnerID:   ownerID,
			Title:     title,
			RawSource: "= " + title + "\n",
			Ctime:     ctime,
		}, &model.Translation{
			Backend: "html5",
			Content: "<h1>" + title + "</h1>",
		}
}

func runDocumentRepoSuite(t *testing.T, conn *sqlx.DB) {
	ctx := context.Background()
	alice := testutil.SeedTenant(t, conn, "alice@example.com", "alice-key")
	bob := testutil.SeedTenant(t, conn, "bob@example.com", "bob-key")
	docs := repo.NewDocumentRepo(conn)

	t.Run("insert and find", func(t *testing.T) {
		doc, tr := newDoc(alice.ID, "Intro", 1427828399)
		id, err := docs.InsertDocumentAndTranslation(ctx, doc, tr)
		require.NoError(t, err)
		require.NotZero(t, id)
		require.Equal(t, id, doc.ID)
		require.Equal(t, id, tr.DocumentID)

		exists, err := docs.TitleExists(ctx, alice.ID, "Intro")
		require.NoError(t, err)
		require.True(t, exists)

		got, err := docs.FindTranslationByTitle(ctx, alice.ID, "Intro")
		require.NoError(t, err)
		require.Equal(t, id, got.DocumentID)
		require.Equal(t, "html5", got.Backend)
		require.Equal(t, "<h1>Intro</h1>", got.Content)
	})

	t.Run("duplicate title leaves store unchanged", func(t *testing.T) {
		before, err := docs.Count(ctx, alice.ID)
		require.NoError(t, err)
		doc, tr := newDoc(alice.ID, "Intro", 1427739901)
		_, err = docs.InsertDocumentAndTranslation(ctx, doc, tr)
		require.True(t, appErr.IsConflict(err))
		after, err := docs.Count(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, before, after)
		untranslated, err := docs.ListUntranslated(ctx)
		require.NoError(t, err)
		require.Empty(t, untranslated)
	})

	t.Run("titles are scoped by owner", func(t *testing.T) {
		exists, err := docs.TitleExists(ctx, bob.ID, "Intro")
		require.NoError(t, err)
		require.False(t, exists)

		_, err = docs.FindTranslationByTitle(ctx, bob.ID, "Intro")
		require.ErrorIs(t, err, appErr.ErrNotFound)

		doc, tr := newDoc(bob.ID, "Intro", 1427739901)
		_, err = docs.InsertDocumentAndTranslation(ctx, doc, tr)
		require.NoError(t, err)
	})

	t.Run("list ordered by id with owner email", func(t *testing.T) {
		for _, title := range []string{"Zeta", "Alpha"} {
			doc, tr := newDoc(alice.ID, title, 1427739901)
			_, err := docs.InsertDocumentAndTranslation(ctx, doc, tr)
			require.NoError(t, err)
		}
		list, err := docs.ListDocuments(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, []string{"Intro", "Zeta", "Alpha"}, []string{list[0].Title, list[1].Title, list[2].Title})
		for i, item := range list {
			require.Equal(t, "alice@example.com", item.Owner)
			require.Equal(t, alice.ID, item.OwnerID)
			if i > 0 {
				require.Less(t, list[i-1].ID, item.ID)
			}
		}
		require.Equal(t, int64(1427828399), list[0].Ctime)
	})

	t.Run("empty list", func(t *testing.T) {
		carol := testutil.SeedTenant(t, conn, "carol@example.com", "carol-key")
		list, err := docs.ListDocuments(ctx, carol.ID)
		require.NoError(t, err)
		require.NotNil(t, list)
		require.Empty(t, list)
	})

	t.Run("concurrent duplicates", func(t *testing.T) {
		const workers = 6
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			created   int
			conflicts int
			others    []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				doc, tr := newDoc(bob.ID, "Race", 1427739901)
				_, err := docs.InsertDocumentAndTranslation(ctx, doc, tr)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case appErr.IsConflict(err):
					conflicts++
				default:
					others = append(others, err)
				}
			}()
		}
		wg.Wait()
		require.Empty(t, others)
		require.Equal(t, 1, created)
		require.Equal(t, workers-1, conflicts)
	})
}

func TestDocumentRepoSqlite(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	runDocumentRepoSuite(t, conn)
}

func TestDocumentRepoPostgres(t *testing.T) {
	conn, cleanup := testutil.OpenPostgresTestDB(t)
	defer cleanup()
	runDocumentRepoSuite(t, conn)
}

func TestListUntranslated(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	alice := testutil.SeedTenant(t, conn, "alice@example.com", "alice-key")
	docs := repo.NewDocumentRepo(conn)

	doc, tr := newDoc(alice.ID, "Translated", 1)
	_, err := docs.InsertDocumentAndTranslation(ctx, doc, tr)
	require.NoError(t, err)

	res, err := conn.Exec(conn.Rebind("INSERT INTO documents (owner_id, title, raw_source, ctime) VALUES (?, ?, ?, ?)"),
		alice.ID, "Orphan", "= Orphan", 2)
	require.NoError(t, err)
	orphanID, err := res.LastInsertId()
	require.NoError(t, err)

	ids, err := docs.ListUntranslated(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{orphanID}, ids)
}

func TestInsertRejectsEmptyTitle(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	alice := testutil.SeedTenant(t, conn, "alice@example.com", "alice-key")
	doc, tr := newDoc(alice.ID, "", 1)
	_, err := repo.NewDocumentRepo(conn).InsertDocumentAndTranslation(context.Background(), doc, tr)
	require.Error(t, err)
	count, err := repo.NewDocumentRepo(conn).Count(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Zero(t, count, fmt.Sprintf("rows left after failed insert: %d", count))
}
