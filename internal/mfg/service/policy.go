package service

import "math"

const qtyEpsilon = 1e-9

// OverproductionPolicy 超产策略，由设置注入
type OverproductionPolicy struct {
	Allow      bool
	Percentage float64 // 允许超出目标的百分比，0表示不限
}

// Limit 目标数量下允许的最大完成数量
func (p OverproductionPolicy) Limit(target float64) float64 {
	if !p.Allow {
		return target
	}
	if p.Percentage <= 0 {
		return math.Inf(1)
	}
	return target * (1 + p.Percentage/100)
}

// Permits 完成数量是否在允许范围内
func (p OverproductionPolicy) Permits(qty, target float64) bool {
	return qty <= p.Limit(target)+qtyEpsilon
}
