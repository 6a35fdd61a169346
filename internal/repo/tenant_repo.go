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

type TenantRepo struct {
	db *sqlx.DB
}

func NewTenantRepo(db *sqlx.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	sqlStr, args, err := builder.BuildInsert("tenants", []map[string]interface{}{{
		"email":        tenant.Email,
		"api_key_hash": tenant.APIKeyHash,
		"ctime":        tenant.Ctime,
	}})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr+" RETURNING id", args)
	var id int64
	if err := r.db.QueryRowxContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.Conflict("api_key", "api key already registered")
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	tenant.ID = id
	return nil
}

func (r *TenantRepo) GetByAPIKeyHash(ctx context.Context, hash string) (*model.Tenant, error) {
	return r.getOne(ctx, map[string]interface{}{"api_key_hash": hash})
}

func (r *TenantRepo) GetByEmail(ctx context.Context, email string) (*model.Tenant, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email, "_orderby": "id asc", "_limit": []uint{0, 1}})
}

func (r *TenantRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Tenant, error) {
	sqlStr, args, err := builder.BuildSelect("tenants", where, []string{"id", "email", "api_key_hash", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var tenant model.Tenant
	if err := r.db.GetContext(ctx, &tenant, sqlStr, args...); err != nil {
		if dbutil.IsNoRows(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}
