package service

import (
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestWorkOrderService_Create(t *testing.T) {
	t.Run("required quantities follow the BOM ratio", func(t *testing.T) {
		f := newFixture(t)
		bom := f.createBOM(t)
		wo := f.createWorkOrder(t, bom, 25)

		assert.Equal(t, "MFG-WO-2026-00001", wo.WorkOrderNumber)
		assert.Equal(t, entity.WOStatusDraft, wo.Status)
		assert.Equal(t, "Work In Progress", wo.WIPWarehouse)
		assert.Equal(t, "Finished Goods", wo.TargetWarehouse)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), wo.PlannedStartDate)
		require.Len(t, wo.RequiredItems, 2)
		assert.Equal(t, 5.0, wo.RequiredItems[0].RequiredQty)
		assert.Equal(t, 2.5, wo.RequiredItems[1].RequiredQty)
		require.Len(t, wo.Operations, 2)
		assert.Equal(t, 75.0, wo.Operations[0].PlannedTimeInMins)
		assert.Equal(t, entity.OpStatusPending, wo.Operations[0].Status)

		stored, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, 5.0, stored.RequiredItems[0].RequiredQty)
	})

	t.Run("fractional quantities", func(t *testing.T) {
		f := newFixture(t)
		bom := f.createBOM(t)
		for _, qty := range []float64{0.5, 3.3, 17.25} {
			wo := f.createWorkOrder(t, bom, qty)
			assert.Equal(t, 2*(qty/10), wo.RequiredItems[0].RequiredQty)
			assert.Equal(t, 1*(qty/10), wo.RequiredItems[1].RequiredQty)
		}
	})

	t.Run("excluded lines are not required", func(t *testing.T) {
		f := newFixture(t)
		in := f.bomInput()
		in.Items[1].IncludeInManufacturing = ptr(false)
		bom, err := f.svc.BOM.Create(f.ctx, in, "planner")
		require.NoError(t, err)
		wo := f.createWorkOrder(t, bom, 10)
		require.Len(t, wo.RequiredItems, 1)
		assert.Equal(t, f.steel.ID, wo.RequiredItems[0].ItemID)
	})

	t.Run("uses the default BOM", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: f.product.ID, Qty: 1}, "planner")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("bom_id"))

		in := f.bomInput()
		in.IsDefault = true
		bom, err := f.svc.BOM.Create(f.ctx, in, "planner")
		require.NoError(t, err)
		wo, err := f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: f.product.ID, Qty: 1}, "planner")
		require.NoError(t, err)
		assert.Equal(t, bom.ID, wo.BOMID)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{
			PlannedStartDate: "2026-04-10",
			PlannedEndDate:   "2026-04-01",
		}, "planner")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("item_id"))
		assert.True(t, verr.HasField("qty"))
		assert.True(t, verr.HasField("planned_end_date"))

		_, err = f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: f.product.ID, Qty: 1, PlannedStartDate: "soon"}, "planner")
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("planned_start_date"))
	})

	t.Run("BOM must be active and match the item", func(t *testing.T) {
		f := newFixture(t)
		bom := f.createBOM(t)
		_, err := f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: f.steel.ID, BOMID: bom.ID, Qty: 1}, "planner")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		_, err = f.svc.BOM.ToggleActive(f.ctx, bom.ID, 0)
		require.NoError(t, err)
		_, err = f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: f.product.ID, BOMID: bom.ID, Qty: 1}, "planner")
		require.ErrorAs(t, err, &verr)

		_, err = f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: f.product.ID, BOMID: "missing", Qty: 1}, "planner")
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		_, err = f.svc.WorkOrder.Create(f.ctx, &WorkOrderInput{ItemID: "missing", Qty: 1}, "planner")
		require.ErrorAs(t, err, &nf)
	})
}

func TestWorkOrderService_Update(t *testing.T) {
	f := newFixture(t)
	bom := f.createBOM(t)
	wo := f.createWorkOrder(t, bom, 10)

	updated, err := f.svc.WorkOrder.Update(f.ctx, wo.ID, &WorkOrderInput{
		Qty:              40,
		PlannedStartDate: "2026-03-20",
		PlannedEndDate:   "2026-03-25",
		TargetWarehouse:  "Stores",
		Version:          wo.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, 8.0, updated.RequiredItems[0].RequiredQty)
	assert.Equal(t, "Stores", updated.TargetWarehouse)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), updated.PlannedStartDate)

	_, err = f.svc.WorkOrder.Update(f.ctx, wo.ID, &WorkOrderInput{Qty: 5, Version: wo.Version})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = f.svc.WorkOrder.Update(f.ctx, wo.ID, &WorkOrderInput{Qty: 5, BOMID: "other"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	started := f.startedWorkOrder(t, 5)
	_, err = f.svc.WorkOrder.Update(f.ctx, started.ID, &WorkOrderInput{Qty: 7})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "update", invalid.Action)
}

func TestWorkOrderService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	bom := f.createBOM(t)
	wo := f.createWorkOrder(t, bom, 20)

	wo, err := f.svc.WorkOrder.Submit(f.ctx, wo.ID, wo.Version)
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusSubmitted, wo.Status)

	wo, err = f.svc.WorkOrder.Release(f.ctx, wo.ID, wo.Version)
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusNotStarted, wo.Status)
	assert.Empty(t, f.jobCards(t, wo.ID))

	wo, err = f.svc.WorkOrder.Start(f.ctx, wo.ID, wo.Version, "planner")
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusInProgress, wo.Status)
	require.NotNil(t, wo.ActualStartDate)
	assert.True(t, wo.ActualStartDate.Equal(fixedNow))

	cards := f.jobCards(t, wo.ID)
	require.Len(t, cards, 2)
	for _, jc := range cards {
		assert.Equal(t, entity.JCStatusOpen, jc.Status)
		assert.Equal(t, 20.0, jc.ForQuantity)
	}
	assert.Equal(t, "MFG-JC-2026-00001", cards[0].JobCardNumber)
	assert.Equal(t, 60.0, cards[0].TimeInMins)

	f.now = fixedNow.Add(2 * time.Hour)
	wo, err = f.svc.WorkOrder.Stop(f.ctx, wo.ID, wo.Version)
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusStopped, wo.Status)
	require.NotNil(t, wo.StoppedAt)

	f.now = fixedNow.Add(3 * time.Hour)
	wo, err = f.svc.WorkOrder.Start(f.ctx, wo.ID, wo.Version, "planner")
	require.NoError(t, err)
	assert.True(t, wo.ActualStartDate.Equal(fixedNow), "resume keeps the first start date")
	assert.Len(t, f.jobCards(t, wo.ID), 2, "resume does not duplicate live job cards")

	f.now = fixedNow.Add(8 * time.Hour)
	wo, err = f.svc.WorkOrder.Complete(f.ctx, wo.ID, &CompleteWorkOrderInput{Version: wo.Version})
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusCompleted, wo.Status)
	assert.Equal(t, 20.0, wo.ProducedQty)
	assert.Equal(t, 100.0, wo.CompletionPercentage)
	assert.Equal(t, bom.CostPerUnit, wo.ActualCostPerUnit, "planned cost applies without consumption")
	require.NotNil(t, wo.ActualEndDate)
	assert.True(t, wo.ActualEndDate.Equal(f.now))
}

func TestWorkOrderService_StartDraftCards(t *testing.T) {
	f := newFixture(t)
	wo := f.releasedWorkOrder(t, 10)

	manual, err := f.svc.JobCard.Create(f.ctx, &CreateJobCardInput{WorkOrderID: wo.ID, Sequence: 10, ForQuantity: ptr(10.0)}, "planner")
	require.NoError(t, err)
	assert.Equal(t, entity.JCStatusDraft, manual.Status)

	_, err = f.svc.WorkOrder.Start(f.ctx, wo.ID, 0, "planner")
	require.NoError(t, err)

	cards := f.jobCards(t, wo.ID)
	require.Len(t, cards, 2)
	for _, jc := range cards {
		assert.Equal(t, entity.JCStatusOpen, jc.Status)
	}
}

func TestWorkOrderService_StartWithoutOperations(t *testing.T) {
	f := newFixture(t)
	in := f.bomInput()
	in.Operations = nil
	bom, err := f.svc.BOM.Create(f.ctx, in, "planner")
	require.NoError(t, err)
	wo := f.createWorkOrder(t, bom, 5)
	wo, err = f.svc.WorkOrder.Release(f.ctx, wo.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.WorkOrder.Start(f.ctx, wo.ID, 0, "planner")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	reloaded, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusNotStarted, reloaded.Status)
	assert.Nil(t, reloaded.ActualStartDate)
}

func TestWorkOrderService_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	bom := f.createBOM(t)
	wo := f.createWorkOrder(t, bom, 10)

	attempts := []struct {
		name string
		call func() error
	}{
		{"start draft", func() error { _, err := f.svc.WorkOrder.Start(f.ctx, wo.ID, 0, "u"); return err }},
		{"stop draft", func() error { _, err := f.svc.WorkOrder.Stop(f.ctx, wo.ID, 0); return err }},
		{"complete draft", func() error {
			_, err := f.svc.WorkOrder.Complete(f.ctx, wo.ID, &CompleteWorkOrderInput{})
			return err
		}},
		{"consume draft", func() error {
			_, err := f.svc.WorkOrder.ConsumeMaterials(f.ctx, wo.ID, &MaterialMovementInput{})
			return err
		}},
	}
	for _, a := range attempts {
		t.Run(a.name, func(t *testing.T) {
			var invalid *InvalidTransitionError
			require.ErrorAs(t, a.call(), &invalid)
			reloaded, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.WOStatusDraft, reloaded.Status)
			assert.Equal(t, wo.Version, reloaded.Version)
		})
	}

	t.Run("terminal orders reject everything", func(t *testing.T) {
		cancelled, err := f.svc.WorkOrder.Cancel(f.ctx, wo.ID, 0)
		require.NoError(t, err)
		for _, call := range []func() error{
			func() error { _, err := f.svc.WorkOrder.Cancel(f.ctx, wo.ID, 0); return err },
			func() error { _, err := f.svc.WorkOrder.Release(f.ctx, wo.ID, 0); return err },
			func() error { _, err := f.svc.WorkOrder.Start(f.ctx, wo.ID, 0, "u"); return err },
		} {
			var invalid *InvalidTransitionError
			require.ErrorAs(t, call(), &invalid)
			assert.Equal(t, entity.WOStatusCancelled, invalid.From)
		}
		reloaded, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, cancelled.Version, reloaded.Version)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.WorkOrder.Submit(f.ctx, "missing", 0)
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
	})
}

func TestWorkOrderService_ConcurrentStart(t *testing.T) {
	f := newFixture(t)
	wo := f.releasedWorkOrder(t, 10)

	errs := make([]error, 2)
	var g errgroup.Group
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = f.svc.WorkOrder.Start(f.ctx, wo.ID, wo.Version, "planner")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var succeeded, conflicted int
	for _, err := range errs {
		var conflict *ConflictError
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorAs(t, err, &conflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	reloaded, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusInProgress, reloaded.Status)
	assert.Equal(t, wo.Version+1, reloaded.Version)
	assert.Len(t, f.jobCards(t, wo.ID), 2)
}

func TestWorkOrderService_ConcurrentStartWithoutVersion(t *testing.T) {
	f := newFixture(t)
	wo := f.releasedWorkOrder(t, 10)

	errs := make([]error, 2)
	var g errgroup.Group
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = f.svc.WorkOrder.Start(f.ctx, wo.ID, 0, "planner")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// 不带版本号时后到者看到的是已开工状态
	var succeeded, rejected int
	for _, err := range errs {
		var invalid *InvalidTransitionError
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorAs(t, err, &invalid):
			assert.Equal(t, entity.WOStatusInProgress, invalid.From)
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	reloaded, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WOStatusInProgress, reloaded.Status)
	assert.Equal(t, wo.Version+1, reloaded.Version)
	assert.Len(t, f.jobCards(t, wo.ID), 2)
}

func TestWorkOrderService_Cancel(t *testing.T) {
	f := newFixture(t)
	wo := f.startedWorkOrder(t, 10)
	cards := f.jobCards(t, wo.ID)
	_, err := f.svc.JobCard.Start(f.ctx, cards[0].ID, 0)
	require.NoError(t, err)

	_, err = f.svc.WorkOrder.Cancel(f.ctx, wo.ID, 0)
	require.NoError(t, err)
	for _, jc := range f.jobCards(t, wo.ID) {
		assert.Equal(t, entity.JCStatusCancelled, jc.Status)
	}
}

func TestWorkOrderService_Delete(t *testing.T) {
	f := newFixture(t)
	bom := f.createBOM(t)

	draft := f.createWorkOrder(t, bom, 3)
	require.NoError(t, f.svc.WorkOrder.Delete(f.ctx, draft.ID, draft.Version))
	_, err := f.svc.WorkOrder.Get(f.ctx, draft.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	var softDeleted int64
	f.db.Unscoped().Model(&entity.WorkOrder{}).Where("id = ?", draft.ID).Count(&softDeleted)
	assert.Equal(t, int64(1), softDeleted)

	released := f.createWorkOrder(t, bom, 3)
	released, err = f.svc.WorkOrder.Release(f.ctx, released.ID, 0)
	require.NoError(t, err)
	err = f.svc.WorkOrder.Delete(f.ctx, released.ID, 0)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	cancelled, err := f.svc.WorkOrder.Cancel(f.ctx, released.ID, 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.WorkOrder.Delete(f.ctx, cancelled.ID, cancelled.Version))
}

func TestWorkOrderService_Materials(t *testing.T) {
	f := newFixture(t)
	wo := f.startedWorkOrder(t, 25)

	wo, err := f.svc.WorkOrder.TransferMaterials(f.ctx, wo.ID, &MaterialMovementInput{
		Items: []MaterialQtyInput{{ItemID: f.steel.ID, Qty: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, wo.RequiredItems[0].TransferredQty)

	_, err = f.svc.WorkOrder.ConsumeMaterials(f.ctx, wo.ID, &MaterialMovementInput{
		Items: []MaterialQtyInput{{ItemID: f.steel.ID, Qty: 4}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("items[0].qty"))

	_, err = f.svc.WorkOrder.TransferMaterials(f.ctx, wo.ID, &MaterialMovementInput{
		Items: []MaterialQtyInput{{ItemID: "not-required", Qty: 1}},
	})
	require.ErrorAs(t, err, &verr)

	wo, err = f.svc.WorkOrder.TransferMaterials(f.ctx, wo.ID, &MaterialMovementInput{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, wo.RequiredItems[0].TransferredQty)
	assert.Equal(t, 2.5, wo.RequiredItems[1].TransferredQty)

	wo, err = f.svc.WorkOrder.ConsumeMaterials(f.ctx, wo.ID, &MaterialMovementInput{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, wo.RequiredItems[0].ConsumedQty)
	assert.Equal(t, 100.0, wo.MaterialsConsumedPercentage)

	wo, err = f.svc.WorkOrder.Complete(f.ctx, wo.ID, &CompleteWorkOrderInput{ProducedQty: ptr(25.0)})
	require.NoError(t, err)
	// 物料 5*2 + 2.5*0.5 = 11.25，作业卡无工时记录
	assert.Equal(t, 0.45, wo.ActualCostPerUnit)
}

func TestWorkOrderService_CompleteOverproduction(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		f := newFixture(t)
		wo := f.startedWorkOrder(t, 10)
		_, err := f.svc.WorkOrder.Complete(f.ctx, wo.ID, &CompleteWorkOrderInput{ProducedQty: ptr(12.0)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("produced_qty"))

		reloaded, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.WOStatusInProgress, reloaded.Status)
	})

	t.Run("allowed within percentage", func(t *testing.T) {
		settings := DefaultSettings()
		settings.Overproduction = OverproductionPolicy{Allow: true, Percentage: 25}
		f := newFixtureWithSettings(t, settings)
		wo := f.startedWorkOrder(t, 10)

		done, err := f.svc.WorkOrder.Complete(f.ctx, wo.ID, &CompleteWorkOrderInput{ProducedQty: ptr(12.0)})
		require.NoError(t, err)
		assert.Equal(t, 120.0, done.CompletionPercentage)
	})
}

func TestWorkOrderService_List(t *testing.T) {
	f := newFixture(t)
	bom := f.createBOM(t)
	f.createWorkOrder(t, bom, 1)
	second := f.createWorkOrder(t, bom, 2)
	_, err := f.svc.WorkOrder.Release(f.ctx, second.ID, 0)
	require.NoError(t, err)

	list, total, err := f.svc.WorkOrder.List(f.ctx, repository.WOListParams{Status: entity.WOStatusNotStarted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, 0.4, list[0].RequiredItems[0].RequiredQty)

	_, total, err = f.svc.WorkOrder.List(f.ctx, repository.WOListParams{Keyword: "MFG-WO-2026"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
