package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/adocstore/internal/model"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
	"github.com/xxxsen/adocstore/internal/repo"
	"github.com/xxxsen/adocstore/internal/tenant"
	"github.com/xxxsen/adocstore/internal/testutil"
)

func TestTenantRepo(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	tenants := repo.NewTenantRepo(conn)

	alice := testutil.SeedTenant(t, conn, "alice@example.com", "alice-key")
	require.NotZero(t, alice.ID)

	got, err := tenants.GetByAPIKeyHash(ctx, tenant.HashAPIKey("alice-key"))
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)

	got, err = tenants.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = tenants.GetByAPIKeyHash(ctx, tenant.HashAPIKey("nope"))
	require.ErrorIs(t, err, appErr.ErrNotFound)

	err = tenants.Create(ctx, &model.Tenant{Email: "mallory@example.com", APIKeyHash: tenant.HashAPIKey("alice-key")})
	require.True(t, appErr.IsConflict(err))
	require.Equal(t, "api_key", appErr.FieldOf(err))
}
