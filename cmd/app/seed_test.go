package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/memory"
	sqliteadapter "github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/sqlite"
	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeedService(t *testing.T) *application.BackofficeService {
	t.Helper()
	ctx := context.Background()
	db, err := sqliteadapter.Open(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	require.NoError(t, sqliteadapter.RunMigrations(ctx, db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return application.NewBackofficeService(sqliteadapter.NewAccessRepository(db), sqliteadapter.NewPropertyRepository(db))
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDecodeSeedFile(t *testing.T) {
	f, err := os.Open("testdata/seed.yaml")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	seed, err := decodeSeed(f)
	require.NoError(t, err)
	require.Len(t, seed.Properties, 3)

	first := seed.Properties[0]
	assert.Equal(t, "Marina Gate", first.Name)
	require.NotNil(t, first.Token)
	assert.Equal(t, domain.TokenSaleActive, first.Token.TokenSaleStatus)
	assert.Equal(t, int64(120), first.Token.TokensSold)
	assert.Nil(t, seed.Properties[1].Token)
}

func TestDecodeSeedRejectsUnknownFields(t *testing.T) {
	_, err := decodeSeed(strings.NewReader("properties:\n  - name: X\n    owner: someone\n"))
	require.Error(t, err)

	seed, err := decodeSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Properties)
}

func TestApplySeedSkipsExisting(t *testing.T) {
	ctx := context.Background()
	svc := newSeedService(t)

	f, err := os.Open("testdata/seed.yaml")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	seed, err := decodeSeed(f)
	require.NoError(t, err)

	created, err := applySeed(ctx, svc, seed, quietLogger())
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, domain.TokenSaleNotStarted, created[1].Token.TokenSaleStatus)
	assert.Equal(t, domain.SecondaryTradingEnabled, created[2].Token.SecondaryTradingStatus)

	again, err := applySeed(ctx, svc, seed, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := svc.ListProperties(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestApplySeedReportsInvalidEntry(t *testing.T) {
	svc := newSeedService(t)
	seed, err := decodeSeed(strings.NewReader(`
properties:
  - name: Oversold Tower
    tokenState:
      totalTokens: 10
      tokensIssued: 5
      tokensSold: 6
`))
	require.NoError(t, err)

	_, err = applySeed(context.Background(), svc, seed, quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Oversold Tower")
}

func TestApplySeedFindsExactNameAmongManySimilar(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPropertyRepository()
	svc := application.NewBackofficeService(nil, repo)

	_, err := repo.CreateProperty(ctx, domain.Property{Name: "Marina Gate", Token: domain.DefaultTokenState()})
	require.NoError(t, err)
	for i := 0; i < 1200; i++ {
		_, err := repo.CreateProperty(ctx, domain.Property{Name: "Marina Gate Tower " + strconv.Itoa(i), Token: domain.DefaultTokenState()})
		require.NoError(t, err)
	}

	created, err := applySeed(ctx, svc, seedFile{Properties: []application.CreatePropertyInput{{Name: "marina gate"}}}, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, created)

	dupes, err := repo.ListProperties(ctx, domain.PropertyQuery{Name: "Marina Gate"})
	require.NoError(t, err)
	assert.Len(t, dupes, 1)
}
