package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "rentzy_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func activeProperty() domain.Property {
	return domain.Property{
		Name:     "Marina Heights",
		Location: "Dubai",
		Token: domain.PropertyTokenState{
			TokenizationStatus:     domain.TokenizationCompleted,
			TokenSaleStatus:        domain.TokenSaleActive,
			SecondaryTradingStatus: domain.SecondaryTradingEnabled,
			MintingStatus:          domain.MintingEnabled,
			TotalTokens:            10000,
			TokensIssued:           8000,
			TokensSold:             500,
		},
	}
}

func logEntryFor(p domain.Property, action domain.TokenAction, next domain.PropertyTokenState) domain.AdminActionLogEntry {
	return domain.AdminActionLogEntry{
		ActionID:      uuid.NewString(),
		AdminID:       1,
		Action:        action,
		EntityType:    domain.EntityTypeProperty,
		EntityID:      p.ID,
		EntityName:    p.Name,
		PreviousState: p.Token.Snapshot(),
		NewState:      next.Snapshot(),
		Reason:        "quarterly compliance review",
		IPAddress:     "10.0.0.7",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestPropertyRoundTripAndCommit(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository(openTestDB(t))

	created, err := repo.CreateProperty(ctx, activeProperty())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, domain.TokenSaleActive, created.Token.TokenSaleStatus)

	next := domain.ApplyAction(created.Token, domain.ActionDisableMinting, 1, time.Now().UTC())
	entry := logEntryFor(created, domain.ActionDisableMinting, next)

	updated, logged, err := repo.CommitTokenAction(ctx, created.ID, created.Version, next, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, domain.MintingDisabled, updated.Token.MintingStatus)
	assert.Equal(t, int64(8000), updated.Token.TotalTokens)
	require.NotNil(t, updated.Token.LastActionBy)
	assert.Equal(t, uint(1), *updated.Token.LastActionBy)

	assert.Equal(t, entry.ActionID, logged.ActionID)
	assert.Equal(t, domain.MintingEnabled, logged.PreviousState.MintingStatus)
	assert.Equal(t, domain.MintingDisabled, logged.NewState.MintingStatus)
	assert.Equal(t, int64(8000), logged.NewState.TotalTokens)

	logs, err := repo.ListActionLogs(ctx, domain.ActionLogQuery{EntityID: &created.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "quarterly compliance review", logs[0].Reason)
	assert.Equal(t, "10.0.0.7", logs[0].IPAddress)
	assert.Equal(t, domain.TokenSaleActive, logs[0].PreviousState.TokenSaleStatus)
}

func TestCommitTokenActionRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository(openTestDB(t))

	created, err := repo.CreateProperty(ctx, activeProperty())
	require.NoError(t, err)

	frozen := domain.ApplyAction(created.Token, domain.ActionFreezeTokenSale, 1, time.Now().UTC())
	_, _, err = repo.CommitTokenAction(ctx, created.ID, created.Version, frozen, logEntryFor(created, domain.ActionFreezeTokenSale, frozen))
	require.NoError(t, err)

	tradingFrozen := domain.ApplyAction(created.Token, domain.ActionFreezeSecondaryTrading, 2, time.Now().UTC())
	_, _, err = repo.CommitTokenAction(ctx, created.ID, created.Version, tradingFrozen, logEntryFor(created, domain.ActionFreezeSecondaryTrading, tradingFrozen))
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repo.GetPropertyByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenSaleFrozen, stored.Token.TokenSaleStatus)
	assert.Equal(t, domain.SecondaryTradingEnabled, stored.Token.SecondaryTradingStatus)

	logs, err := repo.ListActionLogs(ctx, domain.ActionLogQuery{EntityID: &created.ID})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestCommitTokenActionRollsBackWhenLogInsertFails(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository(openTestDB(t))

	created, err := repo.CreateProperty(ctx, activeProperty())
	require.NoError(t, err)

	first := domain.ApplyAction(created.Token, domain.ActionFreezeSecondaryTrading, 1, time.Now().UTC())
	entry := logEntryFor(created, domain.ActionFreezeSecondaryTrading, first)
	updated, _, err := repo.CommitTokenAction(ctx, created.ID, created.Version, first, entry)
	require.NoError(t, err)

	// reusing the action id violates the unique index on the log table
	second := domain.ApplyAction(updated.Token, domain.ActionFreezeTokenSale, 1, time.Now().UTC())
	dup := logEntryFor(updated, domain.ActionFreezeTokenSale, second)
	dup.ActionID = entry.ActionID
	_, _, err = repo.CommitTokenAction(ctx, updated.ID, updated.Version, second, dup)
	require.ErrorIs(t, err, domain.ErrPersistence)

	stored, err := repo.GetPropertyByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Version, stored.Version)
	assert.Equal(t, domain.TokenSaleActive, stored.Token.TokenSaleStatus)
}

func TestCommitTokenActionUnknownProperty(t *testing.T) {
	repo := NewPropertyRepository(openTestDB(t))
	state := domain.DefaultTokenState()
	_, _, err := repo.CommitTokenAction(context.Background(), 99, 1, state, domain.AdminActionLogEntry{ActionID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetPropertyByID(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActionLogsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewPropertyRepository(db)

	created, err := repo.CreateProperty(ctx, activeProperty())
	require.NoError(t, err)
	next := domain.ApplyAction(created.Token, domain.ActionFreezeTokenSale, 1, time.Now().UTC())
	_, _, err = repo.CommitTokenAction(ctx, created.ID, created.Version, next, logEntryFor(created, domain.ActionFreezeTokenSale, next))
	require.NoError(t, err)

	err = db.Exec("UPDATE admin_action_logs SET reason = 'rewritten'").Error
	assert.ErrorContains(t, err, "append-only")

	err = db.Exec("DELETE FROM admin_action_logs").Error
	assert.ErrorContains(t, err, "append-only")

	logs, err := repo.ListActionLogs(ctx, domain.ActionLogQuery{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "quarterly compliance review", logs[0].Reason)
}

func TestCounterInvariantEnforcedByStore(t *testing.T) {
	repo := NewPropertyRepository(openTestDB(t))
	p := activeProperty()
	p.Token.TokensSold = p.Token.TokensIssued + 1

	_, err := repo.CreateProperty(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestListPropertiesAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository(openTestDB(t))
	for _, name := range []string{"Marina Heights", "Creek Lofts", "Marina Walk"} {
		p := activeProperty()
		p.Name = name
		_, err := repo.CreateProperty(ctx, p)
		require.NoError(t, err)
	}

	got, err := repo.ListProperties(ctx, domain.PropertyQuery{Query: "Marina", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Marina Walk", got[0].Name)

	got, err = repo.ListProperties(ctx, domain.PropertyQuery{Name: "marina HEIGHTS"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Marina Heights", got[0].Name)

	got, err = repo.ListProperties(ctx, domain.PropertyQuery{Name: "Marina"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateUserWithRoleIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessRepository(openTestDB(t))

	_, err := repo.CreateUserWithRole(ctx, domain.User{Email: "pm@rentzy.test", PasswordHash: "x"}, 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	roleID, err := repo.CreateRoleIfMissing(ctx, "property_manager", "Property Manager")
	require.NoError(t, err)
	permID, err := repo.CreatePermissionIfMissing(ctx, "property.read")
	require.NoError(t, err)
	require.NoError(t, repo.GrantPermissionToRole(ctx, roleID, permID))

	u, err := repo.CreateUserWithRole(ctx, domain.User{Email: "pm@rentzy.test", PasswordHash: "x"}, roleID)
	require.NoError(t, err)
	perms, err := repo.GetPermissionsByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"property.read"}, perms)

	_, err = repo.CreateUserWithRole(ctx, domain.User{Email: "PM@rentzy.test", PasswordHash: "y"}, roleID)
	require.Error(t, err)
	count, err = repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAccessRepositoryPermissions(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessRepository(openTestDB(t))

	u, err := repo.CreateUser(ctx, domain.User{Email: " Ops@Rentzy.Test ", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ops@rentzy.test", u.Email)

	roleID, err := repo.CreateRoleIfMissing(ctx, "property_manager", "Property Manager")
	require.NoError(t, err)
	again, err := repo.CreateRoleIfMissing(ctx, "property_manager", "Property Manager")
	require.NoError(t, err)
	assert.Equal(t, roleID, again)

	permID, err := repo.CreatePermissionIfMissing(ctx, "property.read")
	require.NoError(t, err)
	require.NoError(t, repo.GrantPermissionToRole(ctx, roleID, permID))
	require.NoError(t, repo.AssignRoleToUser(ctx, u.ID, roleID))

	perms, err := repo.GetPermissionsByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"property.read"}, perms)

	_, err = repo.GetUserByEmail(ctx, "missing@rentzy.test")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.login.session", TargetType: "user", TargetID: &u.ID}))
	records, err := repo.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ops@rentzy.test", records[0].ActorUserEmail)
}
