package tenant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
)

// Resolver maps an API key to the tenant owning it. Unknown keys yield
// ErrForbidden.
type Resolver interface {
	ResolveAPIKey(ctx context.Context, key string) (*model.Tenant, error)
}

type Lookup interface {
	GetByAPIKeyHash(ctx context.Context, hash string) (*model.Tenant, error)
}

// HashAPIKey returns the digest under which a key is stored. Keys are never
// persisted in clear text.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

type StoreResolver struct {
	lookup Lookup
}

func NewStoreResolver(lookup Lookup) *StoreResolver {
	return &StoreResolver{lookup: lookup}
}

func (r *StoreResolver) ResolveAPIKey(ctx context.Context, key string) (*model.Tenant, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, appErr.ErrForbidden
	}
	t, err := r.lookup.GetByAPIKeyHash(ctx, HashAPIKey(key))
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrForbidden
		}
		return nil, appErr.Storage(err)
	}
	return t, nil
}
