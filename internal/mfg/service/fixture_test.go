package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	svc     *Services
	repos   *repository.Repositories
	now     time.Time
	product *entity.Item
	steel   *entity.Item
	paint   *entity.Item
	ws      *entity.Workstation
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithSettings(t, DefaultSettings())
}

func newFixtureWithSettings(t *testing.T, settings Settings) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	f := &fixture{
		ctx:   context.Background(),
		db:    db,
		svc:   NewServices(db, repos, nil, settings, zap.NewNop()),
		repos: repos,
		now:   fixedNow,
	}
	f.svc.SetClock(func() time.Time { return f.now })
	f.product = testutil.SeedItem(t, db, "FG-CHAIR", "Office Chair", 0)
	f.steel = testutil.SeedItem(t, db, "RM-STEEL", "Steel Tube", 2.0)
	f.paint = testutil.SeedItem(t, db, "RM-PAINT", "Paint", 0.5)
	f.ws = testutil.SeedWorkstation(t, db, "Welding Bay", 60)
	return f
}

func ptr[T any](v T) *T {
	return &v
}

// bomInput BOM数量10，钢管2/件，油漆1/件，两道工序
func (f *fixture) bomInput() *BOMInput {
	return &BOMInput{
		ItemID:   f.product.ID,
		Quantity: 10,
		UOM:      "Nos",
		Items: []BOMItemInput{
			{ItemID: f.steel.ID, Qty: 2, Rate: ptr(2.0)},
			{ItemID: f.paint.ID, Qty: 1},
		},
		Operations: []BOMOperationInput{
			{Sequence: 10, Operation: "Welding", WorkstationID: f.ws.ID, TimeInMins: 30},
			{Sequence: 20, Operation: "Painting", TimeInMins: 15, OperatingCost: 5},
		},
	}
}

func (f *fixture) createBOM(t *testing.T) *entity.BOM {
	t.Helper()
	bom, err := f.svc.BOM.Create(f.ctx, f.bomInput(), "planner")
	require.NoError(t, err)
	return bom
}

func (f *fixture) createWorkOrder(t *testing.T, bom *entity.BOM, qty float64) *entity.WorkOrder {
	t.Helper()
	wo, err := f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{
		ItemID: f.product.ID,
		BOMID:  bom.ID,
		Qty:    qty,
	}, "planner")
	require.NoError(t, err)
	return wo
}

func (f *fixture) releasedWorkOrder(t *testing.T, qty float64) *entity.WorkOrder {
	t.Helper()
	wo := f.createWorkOrder(t, f.createBOM(t), qty)
	wo, err := f.svc.WorkOrder.Release(f.ctx, wo.ID, wo.Version)
	require.NoError(t, err)
	return wo
}

func (f *fixture) startedWorkOrder(t *testing.T, qty float64) *entity.WorkOrder {
	t.Helper()
	wo := f.releasedWorkOrder(t, qty)
	wo, err := f.svc.WorkOrder.Start(f.ctx, wo.ID, wo.Version, "planner")
	require.NoError(t, err)
	return wo
}

func (f *fixture) jobCards(t *testing.T, workOrderID string) []entity.JobCard {
	t.Helper()
	cards, err := f.repos.JobCard.ListByWorkOrder(f.ctx, workOrderID)
	require.NoError(t, err)
	return cards
}
