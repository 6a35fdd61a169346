package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

const (
	tenantCollection   = "tenants"
	documentCollection = "documents"
	counterCollection  = "counters"
)

// Connect opens a client and pings it. Caller should call client.Disconnect(ctx).
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Store keeps a document and its translation in a single record, so every
// insert is atomic without a multi-document transaction.
type Store struct {
	tenants  *mongo.Collection
	docs     *mongo.Collection
	counters *mongo.Collection
}

type documentRecord struct {
	ID          int64              `bson:"_id"`
	OwnerID     int64              `bson:"owner_id"`
	Title       string             `bson:"title"`
	RawSource   string             `bson:"raw_source"`
	Ctime       int64              `bson:"ctime"`
	Translation *translationRecord `bson:"translation,omitempty"`
}

type translationRecord struct {
	Backend string `bson:"backend"`
	Content string `bson:"content"`
}

type tenantRecord struct {
	ID         int64  `bson:"_id"`
	Email      string `bson:"email"`
	APIKeyHash string `bson:"api_key_hash"`
	Ctime      int64  `bson:"ctime"`
}

func New(db *mongo.Database) *Store {
	return &Store{
		tenants:  db.Collection(tenantCollection),
		docs:     db.Collection(documentCollection),
		counters: db.Collection(counterCollection),
	}
}

// EnsureIndexes creates the unique indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.docs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create document index: %w", err)
	}
	_, err = s.tenants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "api_key_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create tenant index: %w", err)
	}
	return nil
}

// nextID hands out ascending ids per collection. Ids consumed by a failed
// insert are not reused.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("next id %s: %w", name, err)
	}
	return out.Seq, nil
}

func (s *Store) TitleExists(ctx context.Context, ownerID int64, title string) (bool, error) {
	n, err := s.docs.CountDocuments(ctx, bson.M{"owner_id": ownerID, "title": title}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) InsertDocumentAndTranslation(ctx context.Context, doc *model.Document, tr *model.Translation) (int64, error) {
	if doc.Title == "" {
		return 0, appErr.Validation("title", "missing title")
	}
	exists, err := s.TitleExists(ctx, doc.OwnerID, doc.Title)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, appErr.Conflict("title", "title already exists")
	}
	id, err := s.nextID(ctx, documentCollection)
	if err != nil {
		return 0, err
	}
	_, err = s.docs.InsertOne(ctx, documentRecord{
		ID:          id,
		OwnerID:     doc.OwnerID,
		Title:       doc.Title,
		RawSource:   doc.RawSource,
		Ctime:       doc.Ctime,
		Translation: &translationRecord{Backend: tr.Backend, Content: tr.Content},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, appErr.Conflict("title", "title already exists")
		}
		return 0, fmt.Errorf("insert document: %w", err)
	}
	doc.ID = id
	tr.DocumentID = id
	return id, nil
}

func (s *Store) FindTranslationByTitle(ctx context.Context, ownerID int64, title string) (*model.Translation, error) {
	var rec documentRecord
	err := s.docs.FindOne(ctx, bson.M{"owner_id": ownerID, "title": title}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if rec.Translation == nil {
		return nil, appErr.ErrNotFound
	}
	return &model.Translation{DocumentID: rec.ID, Backend: rec.Translation.Backend, Content: rec.Translation.Content}, nil
}

func (s *Store) ListDocuments(ctx context.Context, ownerID int64) ([]model.DocumentSummary, error) {
	owner, err := s.getTenant(ctx, bson.M{"_id": ownerID})
	if err != nil && !appErr.IsNotFound(err) {
		return nil, err
	}
	email := ""
	if owner != nil {
		email = owner.Email
	}
	cur, err := s.docs.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetProjection(bson.M{"raw_source": 0, "translation": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]model.DocumentSummary, 0)
	for cur.Next(ctx) {
		var rec documentRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, model.DocumentSummary{
			ID:      rec.ID,
			OwnerID: rec.OwnerID,
			Owner:   email,
			Title:   rec.Title,
			Ctime:   rec.Ctime,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, ownerID int64) (int, error) {
	n, err := s.docs.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) ListUntranslated(ctx context.Context) ([]int64, error) {
	cur, err := s.docs.Find(ctx, bson.M{"translation": bson.M{"$exists": false}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	ids := make([]int64, 0)
	for cur.Next(ctx) {
		var rec struct {
			ID int64 `bson:"_id"`
		}
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		ids = append(ids, rec.ID)
	}
	return ids, cur.Err()
}

func (s *Store) Create(ctx context.Context, tenant *model.Tenant) error {
	id, err := s.nextID(ctx, tenantCollection)
	if err != nil {
		return err
	}
	_, err = s.tenants.InsertOne(ctx, tenantRecord{
		ID:         id,
		Email:      tenant.Email,
		APIKeyHash: tenant.APIKeyHash,
		Ctime:      tenant.Ctime,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appErr.Conflict("api_key", "api key already registered")
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	tenant.ID = id
	return nil
}

func (s *Store) GetByAPIKeyHash(ctx context.Context, hash string) (*model.Tenant, error) {
	return s.getTenant(ctx, bson.M{"api_key_hash": hash})
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*model.Tenant, error) {
	return s.getTenant(ctx, bson.M{"email": email})
}

func (s *Store) getTenant(ctx context.Context, filter bson.M) (*model.Tenant, error) {
	var rec tenantRecord
	err := s.tenants.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &model.Tenant{ID: rec.ID, Email: rec.Email, APIKeyHash: rec.APIKeyHash, Ctime: rec.Ctime}, nil
}
