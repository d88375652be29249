package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitTokenActionComparesVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository()

	p, err := repo.CreateProperty(ctx, domain.Property{Name: "Palm Villa", Token: domain.DefaultTokenState()})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Version)

	next := p.Token
	next.SecondaryTradingStatus = domain.SecondaryTradingFrozen
	entry := domain.AdminActionLogEntry{AdminID: 1, Action: domain.ActionFreezeSecondaryTrading, EntityID: p.ID, Reason: "audit", CreatedAt: time.Now().UTC()}

	updated, logged, err := repo.CommitTokenAction(ctx, p.ID, p.Version, next, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.NotZero(t, logged.ID)

	_, _, err = repo.CommitTokenAction(ctx, p.ID, p.Version, next, entry)
	assert.ErrorIs(t, err, domain.ErrConflict)

	logs, err := repo.ListActionLogs(ctx, domain.ActionLogQuery{EntityID: &p.ID})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestCommitTokenActionRollsBackOnLogFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository()
	p, err := repo.CreateProperty(ctx, domain.Property{Name: "Harbor Lofts", Token: domain.DefaultTokenState()})
	require.NoError(t, err)

	repo.FailNextLogWrite(errors.New("disk full"))
	next := p.Token
	next.SecondaryTradingStatus = domain.SecondaryTradingFrozen
	_, _, err = repo.CommitTokenAction(ctx, p.ID, p.Version, next, domain.AdminActionLogEntry{EntityID: p.ID})
	require.ErrorIs(t, err, domain.ErrPersistence)

	stored, err := repo.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SecondaryTradingEnabled, stored.Token.SecondaryTradingStatus)
	assert.Equal(t, p.Version, stored.Version)

	logs, err := repo.ListActionLogs(ctx, domain.ActionLogQuery{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestGetPropertyNotFound(t *testing.T) {
	_, err := NewPropertyRepository().GetPropertyByID(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPropertiesFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewPropertyRepository()
	for _, name := range []string{"Palm Villa", "Harbor Lofts", "Palm Court"} {
		_, err := repo.CreateProperty(ctx, domain.Property{Name: name, Token: domain.DefaultTokenState()})
		require.NoError(t, err)
	}

	got, err := repo.ListProperties(ctx, domain.PropertyQuery{Query: "palm"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Palm Court", got[0].Name)

	got, err = repo.ListProperties(ctx, domain.PropertyQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = repo.ListProperties(ctx, domain.PropertyQuery{Name: "palm court"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Palm Court", got[0].Name)

	got, err = repo.ListProperties(ctx, domain.PropertyQuery{Name: "Palm"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
