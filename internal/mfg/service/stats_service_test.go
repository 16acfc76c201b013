package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// withRedis 换用接入miniredis的服务集合
func (f *fixture) withRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	f.svc = NewServices(f.db, f.repos, rdb, DefaultSettings(), zap.NewNop())
	f.svc.SetClock(func() time.Time { return f.now })
	return mr
}

func TestStatsService_Compute(t *testing.T) {
	f := newFixture(t)

	empty, err := f.svc.Stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalWorkOrders)
	assert.Nil(t, empty.ProductionEfficiency)
	assert.Equal(t, int64(1), empty.ActiveWorkstations)

	_, jc := f.startedCard(t, 100)
	f.createWorkOrder(t, f.createBOM(t), 5)

	_, err = f.svc.JobCard.AddTimeLog(f.ctx, jc.ID, &TimeLogInput{FromTime: at(9, 0), ToTime: at(9, 45), CompletedQty: 100})
	require.NoError(t, err)
	f.now = at(10, 0)
	_, err = f.svc.JobCard.Complete(f.ctx, jc.ID, &CompleteJobCardInput{})
	require.NoError(t, err)

	stats, err := f.svc.Stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalWorkOrders)
	assert.Equal(t, int64(1), stats.ActiveWorkOrders)
	assert.Equal(t, int64(1), stats.InProgressWorkOrders)
	assert.Zero(t, stats.CompletedWorkOrders)
	assert.Equal(t, int64(2), stats.TotalJobCards)
	assert.Equal(t, int64(1), stats.OpenJobCards)
	assert.Zero(t, stats.InProgressJobCards)
	assert.Equal(t, int64(1), stats.CompletedJobCardsToday)
	require.NotNil(t, stats.ProductionEfficiency)
	assert.Equal(t, 667.0, *stats.ProductionEfficiency)
	assert.Equal(t, int64(2), stats.ActiveBOMs)
	assert.True(t, stats.GeneratedAt.Equal(at(10, 0)))

	f.now = at(10, 0).Add(24 * time.Hour)
	tomorrow, err := f.svc.Stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, tomorrow.CompletedJobCardsToday)
}

func TestStatsService_Cache(t *testing.T) {
	f := newFixture(t)
	mr := f.withRedis(t)

	first, err := f.svc.Stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, first.TotalWorkOrders)
	require.True(t, mr.Exists(statsCacheKey))
	assert.Equal(t, 30*time.Second, mr.TTL(statsCacheKey))

	// 绕过服务直接写库，缓存命中时看不到变化
	require.NoError(t, f.db.Create(&entity.Workstation{
		ID: "ws-direct", Name: "Direct", WorkstationType: "assembly",
		WorkingHoursPerDay: 8, Status: entity.WorkstationStatusActive, Version: 1,
	}).Error)
	cached, err := f.svc.Stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ActiveWorkstations, cached.ActiveWorkstations)

	f.createBOM(t)
	assert.False(t, mr.Exists(statsCacheKey), "mutations invalidate the cache")

	fresh, err := f.svc.Stats.Get(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.ActiveWorkstations)
	assert.Equal(t, int64(1), fresh.ActiveBOMs)

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(statsCacheKey))
}

func TestStatsCache_NilClient(t *testing.T) {
	var cache *StatsCache
	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
	assert.NoError(t, cache.Set(context.Background(), &ManufacturingStats{}))
	cache.Invalidate(context.Background())

	noRedis := NewStatsCache(nil, 0)
	_, ok = noRedis.Get(context.Background())
	assert.False(t, ok)
}
