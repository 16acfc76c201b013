package service

import (
	"math"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/shopspring/decimal"
)

// guardDiv 除数为0时返回0
func guardDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func money(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func percent(ratio float64) float64 {
	return math.Round(ratio * 100)
}

// TotalHourlyCost 工作站综合小时成本
func TotalHourlyCost(ws *entity.Workstation) float64 {
	if ws == nil {
		return 0
	}
	return money(dec(ws.HourRate).
		Add(dec(ws.ElectricityCost)).
		Add(dec(ws.ConsumableCost)).
		Add(dec(ws.RentCost)))
}

// DailyCapacity 日产能，任一因子非正时为0
func DailyCapacity(ws *entity.Workstation) float64 {
	if ws == nil || ws.ProductionCapacity <= 0 || ws.WorkingHoursPerDay <= 0 {
		return 0
	}
	return ws.ProductionCapacity * ws.WorkingHoursPerDay
}

func applyWorkstationProjections(ws *entity.Workstation) {
	ws.TotalHourlyCost = TotalHourlyCost(ws)
	ws.DailyCapacity = DailyCapacity(ws)
}

// operationRate 工序计费费率: 工作站小时费率，为0时退回综合小时成本
func operationRate(ws *entity.Workstation) float64 {
	if ws.HourRate > 0 {
		return ws.HourRate
	}
	return TotalHourlyCost(ws)
}

// hourlyCost 按分钟数与小时费率计算金额
func hourlyCost(minutes, rate float64) decimal.Decimal {
	return dec(minutes).Div(decimal.NewFromInt(60)).Mul(dec(rate))
}

// BOMCost BOM成本汇总
type BOMCost struct {
	MaterialsCost  float64
	OperationsCost float64
	TotalCost      float64
	CostPerUnit    float64
}

// costBOM 重新计算行金额、工序成本和BOM汇总。
// 绑定工作站的工序按工时计费，未绑定的沿用录入的成本。
func costBOM(bom *entity.BOM, workstations map[string]*entity.Workstation) BOMCost {
	materials := decimal.Zero
	for i := range bom.Items {
		line := &bom.Items[i]
		amount := dec(line.Quantity).Mul(dec(line.Rate))
		line.Amount = money(amount)
		materials = materials.Add(dec(line.Amount))
	}

	operations := decimal.Zero
	for i := range bom.Operations {
		op := &bom.Operations[i]
		if ws, ok := workstations[op.WorkstationID]; ok && op.WorkstationID != "" {
			op.OperatingCost = money(hourlyCost(op.TimeInMins, operationRate(ws)))
		}
		operations = operations.Add(dec(op.OperatingCost))
	}

	total := materials.Add(operations)
	cost := BOMCost{
		MaterialsCost:  money(materials),
		OperationsCost: money(operations),
		TotalCost:      money(total),
	}
	if bom.Quantity > 0 {
		cost.CostPerUnit, _ = total.Div(dec(bom.Quantity)).Round(4).Float64()
	}

	bom.MaterialsCost = cost.MaterialsCost
	bom.OperationsCost = cost.OperationsCost
	bom.TotalCost = cost.TotalCost
	bom.CostPerUnit = cost.CostPerUnit
	return cost
}

// requiredQty 工单对某物料的需求量
func requiredQty(lineQty, orderQty, bomQty float64) float64 {
	return lineQty * guardDiv(orderQty, bomQty)
}

// applyWorkOrderProjections 根据BOM快照计算需求量、计划工时及进度百分比
func applyWorkOrderProjections(wo *entity.WorkOrder, bom *entity.BOM, policy OverproductionPolicy) {
	if bom != nil {
		lines := make(map[string]*entity.BOMItem, len(bom.Items))
		for i := range bom.Items {
			lines[bom.Items[i].ID] = &bom.Items[i]
		}
		ops := make(map[string]*entity.BOMOperation, len(bom.Operations))
		for i := range bom.Operations {
			ops[bom.Operations[i].ID] = &bom.Operations[i]
		}
		for i := range wo.RequiredItems {
			if line, ok := lines[wo.RequiredItems[i].BOMItemID]; ok {
				wo.RequiredItems[i].RequiredQty = requiredQty(line.Quantity, wo.Qty, bom.Quantity)
			}
		}
		for i := range wo.Operations {
			if op, ok := ops[wo.Operations[i].BOMOperationID]; ok {
				wo.Operations[i].PlannedTimeInMins = requiredQty(op.TimeInMins, wo.Qty, bom.Quantity)
			}
		}
	}

	wo.CompletionPercentage = completionPercentage(wo.ProducedQty, wo.Qty, policy.Allow)

	var required, consumed float64
	for _, it := range wo.RequiredItems {
		required += it.RequiredQty
		consumed += it.ConsumedQty
	}
	wo.MaterialsConsumedPercentage = percent(guardDiv(consumed, required))

	var done int
	for _, op := range wo.Operations {
		if op.Status == entity.OpStatusCompleted {
			done++
		}
	}
	wo.OperationsPercentage = percent(guardDiv(float64(done), float64(len(wo.Operations))))
}

// completionPercentage 完成百分比，未开启超产时封顶100
func completionPercentage(done, target float64, uncapped bool) float64 {
	ratio := guardDiv(done, target)
	if ratio < 0 {
		ratio = 0
	}
	if !uncapped && ratio > 1 {
		ratio = 1
	}
	return percent(ratio)
}

// logMinutes 工时记录时长，向下取整到分钟
func logMinutes(l *entity.JobCardTimeLog) int64 {
	return int64(math.Floor(l.ToTime.Sub(l.FromTime).Minutes()))
}

// applyJobCardProjections 计算实际工时、计时、效率、完成率与实际成本
func applyJobCardProjections(jc *entity.JobCard, ws *entity.Workstation, now time.Time, policy OverproductionPolicy) {
	var total int64
	for i := range jc.TimeLogs {
		jc.TimeLogs[i].DurationInMins = logMinutes(&jc.TimeLogs[i])
		total += jc.TimeLogs[i].DurationInMins
	}
	jc.TotalTimeInMins = float64(total)

	jc.ElapsedSeconds = nil
	if jc.StartedTime != nil {
		end := now
		if jc.Status == entity.JCStatusCompleted && jc.CompletedTime != nil {
			end = *jc.CompletedTime
		}
		if jc.Status == entity.JCStatusWorkInProgress || jc.Status == entity.JCStatusCompleted {
			secs := int64(end.Sub(*jc.StartedTime).Seconds())
			if secs < 0 {
				secs = 0
			}
			jc.ElapsedSeconds = &secs
		}
	}

	jc.Efficiency = nil
	if jc.TotalTimeInMins > 0 {
		eff := percent(guardDiv(jc.TimeInMins, jc.TotalTimeInMins))
		jc.Efficiency = &eff
	}

	jc.CompletionPercentage = completionPercentage(jc.CompletedQty, jc.ForQuantity, policy.Allow)

	jc.ActualOperatingCost = 0
	if ws != nil {
		jc.ActualOperatingCost = money(hourlyCost(jc.TotalTimeInMins, TotalHourlyCost(ws)))
	}
}
