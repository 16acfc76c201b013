package service

import "github.com/bitfantasy/nimo-mfg/internal/mfg/entity"

// 状态机动作
const (
	ActionSubmit   = "submit"
	ActionRelease  = "release"
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
	ActionOpen     = "open"
)

type transition struct {
	from []string
	to   string
}

var workOrderTransitions = map[string]transition{
	ActionSubmit:   {from: []string{entity.WOStatusDraft}, to: entity.WOStatusSubmitted},
	ActionRelease:  {from: []string{entity.WOStatusDraft, entity.WOStatusSubmitted}, to: entity.WOStatusNotStarted},
	ActionStart:    {from: []string{entity.WOStatusNotStarted, entity.WOStatusStopped}, to: entity.WOStatusInProgress},
	ActionStop:     {from: []string{entity.WOStatusInProgress}, to: entity.WOStatusStopped},
	ActionComplete: {from: []string{entity.WOStatusInProgress}, to: entity.WOStatusCompleted},
	ActionCancel: {from: []string{
		entity.WOStatusDraft, entity.WOStatusSubmitted, entity.WOStatusNotStarted,
		entity.WOStatusInProgress, entity.WOStatusStopped,
	}, to: entity.WOStatusCancelled},
}

var jobCardTransitions = map[string]transition{
	ActionOpen:     {from: []string{entity.JCStatusDraft}, to: entity.JCStatusOpen},
	ActionStart:    {from: []string{entity.JCStatusOpen}, to: entity.JCStatusWorkInProgress},
	ActionComplete: {from: []string{entity.JCStatusWorkInProgress}, to: entity.JCStatusCompleted},
	ActionCancel: {from: []string{
		entity.JCStatusDraft, entity.JCStatusOpen, entity.JCStatusWorkInProgress,
	}, to: entity.JCStatusCancelled},
}

func nextStatus(table map[string]transition, from, action string) (string, bool) {
	t, ok := table[action]
	if !ok {
		return "", false
	}
	for _, s := range t.from {
		if s == from {
			return t.to, true
		}
	}
	return "", false
}

// NextWorkOrderStatus 工单在某动作下的目标状态
func NextWorkOrderStatus(from, action string) (string, bool) {
	return nextStatus(workOrderTransitions, from, action)
}

// NextJobCardStatus 作业卡在某动作下的目标状态
func NextJobCardStatus(from, action string) (string, bool) {
	return nextStatus(jobCardTransitions, from, action)
}
