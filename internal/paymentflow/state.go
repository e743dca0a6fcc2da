package paymentflow

import (
	"errors"
	"fmt"
)

// ============================================================================
// 购买红心的支付流程状态机
// ============================================================================
//
// 与 UI 框架无关的纯状态机：所有迁移都通过 Next(state, event) 计算，
// 便于脱离渲染层做单元测试
//
//	SELECTING_METHOD --SELECT_METHOD--> ENTERING_DETAILS
//	ENTERING_DETAILS --SUBMIT_DETAILS--> PROCESSING
//	PROCESSING --CHARGE_OK--> SUCCEEDED
//	PROCESSING --CHARGE_FAILED--> FAILED
//	FAILED --RETRY--> ENTERING_DETAILS
//	FAILED --CANCEL--> CLOSED（终态，丢弃全部临时表单状态）
//	SUCCEEDED --CLOSE--> CLOSED（展示一段时间后自动关闭）
//
// ============================================================================

// State 流程状态
type State string

const (
	StateSelectingMethod State = "SELECTING_METHOD"
	StateEnteringDetails State = "ENTERING_DETAILS"
	StateProcessing      State = "PROCESSING"
	StateSucceeded       State = "SUCCEEDED"
	StateFailed          State = "FAILED"
	StateClosed          State = "CLOSED" // 终态
)

// Event 驱动迁移的事件
type Event string

const (
	EventSelectMethod  Event = "SELECT_METHOD"
	EventSubmitDetails Event = "SUBMIT_DETAILS"
	EventChargeOK      Event = "CHARGE_OK"
	EventChargeFailed  Event = "CHARGE_FAILED"
	EventRetry         Event = "RETRY"
	EventCancel        Event = "CANCEL"
	EventClose         Event = "CLOSE"
)

var ErrInvalidTransition = errors.New("非法的状态迁移")

// transitions 状态迁移表
var transitions = map[State]map[Event]State{
	StateSelectingMethod: {
		EventSelectMethod: StateEnteringDetails,
		EventCancel:       StateClosed,
	},
	StateEnteringDetails: {
		EventSubmitDetails: StateProcessing,
		EventCancel:        StateClosed,
	},
	StateProcessing: {
		EventChargeOK:     StateSucceeded,
		EventChargeFailed: StateFailed,
	},
	StateFailed: {
		EventRetry:  StateEnteringDetails,
		EventCancel: StateClosed,
	},
	StateSucceeded: {
		EventClose: StateClosed,
	},
}

// Next 计算迁移结果；非法迁移返回 ErrInvalidTransition 且状态不变
func Next(state State, event Event) (State, error) {
	events, ok := transitions[state]
	if !ok {
		return state, fmt.Errorf("%w: %s 为终态", ErrInvalidTransition, state)
	}
	next, ok := events[event]
	if !ok {
		return state, fmt.Errorf("%w: %s 不接受事件 %s", ErrInvalidTransition, state, event)
	}
	return next, nil
}

// CanTransition 是否允许该迁移
func CanTransition(state State, event Event) bool {
	_, err := Next(state, event)
	return err == nil
}

// Terminal 是否为终态
func Terminal(state State) bool {
	return state == StateClosed
}
