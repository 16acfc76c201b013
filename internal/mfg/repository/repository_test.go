package repository

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNamingSeries_Next(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewNamingSeriesRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, err := repo.Next(ctx, "MFG-WO-2026-")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := repo.Next(ctx, "MFG-WO-2027-")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "each prefix counts on its own")
}

func TestNamingSeries_RollsBackWithTx(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewNamingSeriesRepository(db)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		n, err := repo.WithTx(tx).Next(ctx, "BOM-2026-")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return assert.AnError
	})
	n, err := repo.Next(ctx, "BOM-2026-")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveVersioned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewWorkstationRepository(db)
	ctx := context.Background()
	ws := testutil.SeedWorkstation(t, db, "Press", 30)

	stale := *ws
	ws.HourRate = 45
	require.NoError(t, repo.Update(ctx, ws))
	assert.Equal(t, 2, ws.Version)

	stale.HourRate = 99
	err := repo.Update(ctx, &stale)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 1, stale.Version, "version is restored on conflict")

	stored, err := repo.FindByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.0, stored.HourRate)
	assert.Equal(t, 2, stored.Version)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestFindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	_, err := repos.Item.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repos.BOM.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repos.JobCard.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repos.WorkOrder.FindOperation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkOrder_SoftDeleteAndOpenCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewWorkOrderRepository(db)
	ctx := context.Background()

	orders := []*entity.WorkOrder{
		{ID: "wo-1", WorkOrderNumber: "MFG-WO-2026-00001", ItemID: "i", BOMID: "b", Qty: 1, Status: entity.WOStatusInProgress, Version: 1},
		{ID: "wo-2", WorkOrderNumber: "MFG-WO-2026-00002", ItemID: "i", BOMID: "b", Qty: 1, Status: entity.WOStatusCompleted, Version: 1},
		{ID: "wo-3", WorkOrderNumber: "MFG-WO-2026-00003", ItemID: "i", BOMID: "b", Qty: 1, Status: entity.WOStatusDraft, Version: 1},
	}
	for _, wo := range orders {
		require.NoError(t, repo.Create(ctx, wo))
	}

	open, err := repo.CountOpenByBOM(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), open)

	stale := *orders[2]
	stale.Version = 7
	assert.ErrorIs(t, repo.Delete(ctx, &stale), ErrVersionConflict)
	require.NoError(t, repo.Delete(ctx, orders[2]))

	open, err = repo.CountOpenByBOM(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)
	all, err := repo.CountByBOM(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), all, "completed orders still reference the BOM")

	_, err = repo.FindByID(ctx, "wo-3")
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{entity.WOStatusInProgress: 1, entity.WOStatusCompleted: 1}, counts)
}

func TestListParams_Normalize(t *testing.T) {
	offset, limit := ListParams{}.normalize()
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)

	offset, limit = ListParams{Page: 3, Size: 500}.normalize()
	assert.Equal(t, 200, offset)
	assert.Equal(t, 100, limit)
}
