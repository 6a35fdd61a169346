package main

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/config"
	"github.com/xxxsen/adocstore/internal/db"
	"github.com/xxxsen/adocstore/internal/model"
	"github.com/xxxsen/adocstore/internal/mongostore"
	"github.com/xxxsen/adocstore/internal/repo"
	"github.com/xxxsen/adocstore/internal/service"
)

type tenantStore interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByAPIKeyHash(ctx context.Context, hash string) (*model.Tenant, error)
	GetByEmail(ctx context.Context, email string) (*model.Tenant, error)
}

type untranslatedLister interface {
	ListUntranslated(ctx context.Context) ([]int64, error)
}

type stores struct {
	docs    service.DocumentStore
	tenants tenantStore
	audit   untranslatedLister
	close   func()
}

// openStores connects the configured backend and brings its schema up to
// date: migrations for SQL drivers, indexes for mongo.
func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("driver", cfg.Driver))
	if cfg.Driver == config.DriverMongo {
		client, err := mongostore.Connect(ctx, cfg.MongoURI, 10*time.Second)
		if err != nil {
			return nil, err
		}
		store := mongostore.New(client.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("document store ready", zap.String("database", cfg.MongoDatabase))
		return &stores{
			docs:    store,
			tenants: store,
			audit:   store,
			close: func() {
				_ = client.Disconnect(context.Background())
			},
		}, nil
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	docs := repo.NewDocumentRepo(conn)
	logger.Info("document store ready")
	return &stores{
		docs:    docs,
		tenants: repo.NewTenantRepo(conn),
		audit:   docs,
		close: func() {
			_ = conn.Close()
		},
	}, nil
}
