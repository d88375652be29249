package application

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/memory"
	"github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/sqlite"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccessService(t *testing.T, opts ...Option) *BackofficeService {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	svc := NewBackofficeService(sqlite.NewAccessRepository(db), memory.NewPropertyRepository(), opts...)
	require.NoError(t, svc.BootstrapAdmin(ctx, "admin@rentzy.test", "s3cret-pass"))
	return svc
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)
	require.NoError(t, svc.BootstrapAdmin(ctx, "other@rentzy.test", "another-pass"))

	users, err := svc.ListUsers(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@rentzy.test", users[0].Email)

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	keys := make([]string, 0, len(roles))
	for _, r := range roles {
		keys = append(keys, r.Key)
	}
	assert.ElementsMatch(t, []string{"admin", "property_manager", "auditor"}, keys)
}

func TestSessionLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)

	_, _, err := svc.LoginWithSession(ctx, "admin@rentzy.test", "wrong", time.Hour)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	u, token, err := svc.LoginWithSession(ctx, " Admin@Rentzy.test ", "s3cret-pass", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	ident, err := svc.AuthenticateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, ident.User.ID)
	assert.True(t, svc.Can(ident, PermissionTokenizationAct))

	require.NoError(t, svc.LogoutSession(ctx, token))
	_, err = svc.AuthenticateSession(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)

	_, token, err := svc.LoginWithSession(ctx, "admin@rentzy.test", "s3cret-pass", -time.Minute)
	require.NoError(t, err)
	_, err = svc.AuthenticateSession(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAPITokenLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)

	_, token, err := svc.LoginWithAPIToken(ctx, "admin@rentzy.test", "s3cret-pass", "", nil)
	require.NoError(t, err)

	ident, err := svc.AuthenticateBearerToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin@rentzy.test", ident.User.Email)

	_, err = svc.AuthenticateBearerToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestJWTLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t, WithJWT("test-signing-secret", "rentzy-test", 15*time.Minute))
	require.True(t, svc.JWTEnabled())

	u, token, expiresAt, err := svc.LoginWithJWT(ctx, "admin@rentzy.test", "s3cret-pass")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	ident, err := svc.AuthenticateBearerToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, ident.User.ID)

	other := newAccessService(t, WithJWT("different-secret", "rentzy-test", time.Minute))
	_, err = other.AuthenticateBearerToken(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestJWTLoginDisabledWithoutSecret(t *testing.T) {
	svc := newAccessService(t)
	_, _, _, err := svc.LoginWithJWT(context.Background(), "admin@rentzy.test", "s3cret-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPropertyManagerIsReadOnly(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)

	var managerRole uint
	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	for _, r := range roles {
		if r.Key == "property_manager" {
			managerRole = r.ID
		}
	}
	require.NotZero(t, managerRole)

	_, err = svc.CreateUser(ctx, "pm@rentzy.test", "pm-pass", managerRole)
	require.NoError(t, err)
	_, token, err := svc.LoginWithAPIToken(ctx, "pm@rentzy.test", "pm-pass", "pm", nil)
	require.NoError(t, err)

	ident, err := svc.AuthenticateBearerToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, svc.Can(ident, PermissionPropertyRead))
	assert.False(t, svc.Can(ident, PermissionTokenizationAct))
	assert.False(t, svc.Can(ident, PermissionPropertyWrite))
}

func TestCreateUserWithUnknownRoleStoresNothing(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)

	_, err := svc.CreateUser(ctx, "ghost@rentzy.test", "ghost-pass", 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)

	users, err := svc.ListUsers(ctx, "ghost", 0)
	require.NoError(t, err)
	assert.Empty(t, users)

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, roles)
	u, err := svc.CreateUser(ctx, "ghost@rentzy.test", "ghost-pass", roles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "ghost@rentzy.test", u.Email)
}

func TestCreatePropertyValidatesInitialState(t *testing.T) {
	ctx := context.Background()
	svc := newAccessService(t)

	p, err := svc.CreateProperty(ctx, nil, CreatePropertyInput{Name: " Creek Lofts ", Location: "Dubai Creek"})
	require.NoError(t, err)
	assert.Equal(t, "Creek Lofts", p.Name)
	assert.Equal(t, domain.DefaultTokenState(), p.Token)

	_, err = svc.CreateProperty(ctx, nil, CreatePropertyInput{Name: "Overbooked", Token: &domain.PropertyTokenState{TotalTokens: 10, TokensIssued: 20}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateProperty(ctx, nil, CreatePropertyInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	partial, err := svc.CreateProperty(ctx, nil, CreatePropertyInput{Name: "Seeded", Token: &domain.PropertyTokenState{TokenSaleStatus: domain.TokenSaleActive, TotalTokens: 100, TokensIssued: 50}})
	require.NoError(t, err)
	assert.Equal(t, domain.TokenSaleActive, partial.Token.TokenSaleStatus)
	assert.Equal(t, domain.MintingEnabled, partial.Token.MintingStatus)

	records, err := svc.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "property.create", records[0].Action)
}
