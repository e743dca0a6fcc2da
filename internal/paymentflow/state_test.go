package paymentflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/paymentflow"
)

func TestHappyPath(t *testing.T) {
	state := paymentflow.StateSelectingMethod

	state, err := paymentflow.Next(state, paymentflow.EventSelectMethod)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateEnteringDetails, state)

	state, err = paymentflow.Next(state, paymentflow.EventSubmitDetails)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateProcessing, state)

	state, err = paymentflow.Next(state, paymentflow.EventChargeOK)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateSucceeded, state)

	state, err = paymentflow.Next(state, paymentflow.EventClose)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateClosed, state)
	assert.True(t, paymentflow.Terminal(state))
}

func TestFailureAllowsRetryOrCancel(t *testing.T) {
	state, err := paymentflow.Next(paymentflow.StateProcessing, paymentflow.EventChargeFailed)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateFailed, state)

	// 重试回到明细录入
	retried, err := paymentflow.Next(state, paymentflow.EventRetry)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateEnteringDetails, retried)

	// 取消进入终态
	cancelled, err := paymentflow.Next(state, paymentflow.EventCancel)
	require.NoError(t, err)
	assert.Equal(t, paymentflow.StateClosed, cancelled)
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		state paymentflow.State
		event paymentflow.Event
	}{
		{paymentflow.StateSelectingMethod, paymentflow.EventSubmitDetails}, // 未选方式不能提交
		{paymentflow.StateSelectingMethod, paymentflow.EventChargeOK},
		{paymentflow.StateProcessing, paymentflow.EventCancel}, // 处理中不可中断
		{paymentflow.StateProcessing, paymentflow.EventRetry},
		{paymentflow.StateSucceeded, paymentflow.EventRetry},
		{paymentflow.StateClosed, paymentflow.EventSelectMethod}, // 终态不接受任何事件
	}

	for _, tc := range cases {
		next, err := paymentflow.Next(tc.state, tc.event)
		assert.ErrorIs(t, err, paymentflow.ErrInvalidTransition, "%s + %s", tc.state, tc.event)
		// 非法迁移不改变状态
		assert.Equal(t, tc.state, next)
		assert.False(t, paymentflow.CanTransition(tc.state, tc.event))
	}
}

func TestValidateDetails(t *testing.T) {
	valid := &paymentflow.Details{
		CardNumber: "4111 1111 1111 1111",
		CardExpiry: "12/27",
		CardCVV:    "123",
	}
	require.NoError(t, paymentflow.ValidateDetails("credit_card", valid))

	bad := []*paymentflow.Details{
		nil,
		{CardNumber: "1234", CardExpiry: "12/27", CardCVV: "123"},
		{CardNumber: "4111111111111111", CardExpiry: "13/27", CardCVV: "123"},
		{CardNumber: "4111111111111111", CardExpiry: "12/27", CardCVV: "12"},
	}
	for i, d := range bad {
		assert.ErrorIs(t, paymentflow.ValidateDetails("credit_card", d), paymentflow.ErrInvalidDetails, "case %d", i)
	}

	require.NoError(t, paymentflow.ValidateDetails("phone_payment", &paymentflow.Details{Phone: "010-1234-5678"}))
	assert.ErrorIs(t, paymentflow.ValidateDetails("phone_payment", &paymentflow.Details{Phone: "123"}), paymentflow.ErrInvalidDetails)

	require.NoError(t, paymentflow.ValidateDetails("bank_transfer", &paymentflow.Details{BankHolder: "김설", BankNumber: "110-1234-5678"}))
	assert.ErrorIs(t, paymentflow.ValidateDetails("bank_transfer", &paymentflow.Details{BankHolder: " "}), paymentflow.ErrInvalidDetails)

	// 跳转式支付无需明细
	require.NoError(t, paymentflow.ValidateDetails("kakaopay", nil))

	assert.ErrorIs(t, paymentflow.ValidateDetails("bitcoin", nil), paymentflow.ErrInvalidDetails)
}
