package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/catalog"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/paymentflow"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/service"
)

func TestPurchaseStandardPackage(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	resp, err := env.payment.Purchase(ctx, &service.PurchaseRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		PackageID: "standard",
		MethodID:  "credit_card",
		Details:   validCardDetails(),
	})
	require.NoError(t, err)

	// {hearts:500, bonus:100, price:4500} + 手续费110 => 实付4610，入账600
	assert.Equal(t, int64(4610), resp.Amount)
	assert.Equal(t, int64(110), resp.Fee)
	assert.Equal(t, int64(600), resp.HeartsGranted)
	assert.Equal(t, int64(600), resp.Balance)
	assert.NotEmpty(t, resp.PaymentNo)

	// 支付记录与入账流水一一对应
	payment, err := env.payment.GetPayment(ctx, resp.PaymentNo)
	require.NoError(t, err)
	assert.Equal(t, int64(600), payment.HeartsGranted)
	assert.Equal(t, int64(4610), payment.Amount)
	assert.Nil(t, payment.RefundedAt)

	history, _, err := env.ledger.GetHistory(ctx, "user-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(600), history[0].Amount)
	assert.Equal(t, model.TransactionTypePurchase, history[0].Type)
	assert.Equal(t, resp.PaymentNo, history[0].RefPaymentNo)

	// 外发消息与支付记录同事务落库
	assert.Equal(t, int64(1), countRows(t, env.db, &model.OutboxMessage{}))
}

func TestPurchaseChargeDeclined(t *testing.T) {
	// 失败概率 100%，渠道必然拒绝
	env := newTestEnv(t, 1.0)
	ctx := context.Background()

	_, err := env.payment.Purchase(ctx, &service.PurchaseRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		PackageID: "standard",
		MethodID:  "kakaopay",
	})
	assert.ErrorIs(t, err, paymentflow.ErrChargeDeclined)

	// 渠道拒绝发生在任何写入之前
	balance, err := env.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, int64(0), countRows(t, env.db, &model.PaymentTransaction{}))
	assert.Equal(t, int64(0), countRows(t, env.db, &model.HeartTransaction{}))
}

func TestPurchaseIdempotentReplay(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	req := &service.PurchaseRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		PackageID: "starter",
		MethodID:  "kakaopay",
	}

	first, err := env.payment.Purchase(ctx, req)
	require.NoError(t, err)

	// 相同 request_id 重放：返回原结果，不再扣费不再入账
	second, err := env.payment.Purchase(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentNo, second.PaymentNo)
	assert.Equal(t, first.HeartsGranted, second.HeartsGranted)

	balance, err := env.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
	assert.Equal(t, int64(1), countRows(t, env.db, &model.PaymentTransaction{}))
}

func TestPurchaseUnknownCatalogIDs(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	_, err := env.payment.Purchase(ctx, &service.PurchaseRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		PackageID: "nope",
		MethodID:  "kakaopay",
	})
	assert.ErrorIs(t, err, catalog.ErrPackageNotFound)

	_, err = env.payment.Purchase(ctx, &service.PurchaseRequest{
		RequestID: "req-2",
		UserID:    "user-1",
		PackageID: "starter",
		MethodID:  "paypal",
	})
	assert.ErrorIs(t, err, catalog.ErrMethodNotFound)

	// 客户端错误不触达任何状态
	assert.Equal(t, int64(0), countRows(t, env.db, &model.PaymentTransaction{}))
	assert.Equal(t, int64(0), countRows(t, env.db, &model.HeartTransaction{}))
}

func TestPurchaseInvalidDetails(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	_, err := env.payment.Purchase(ctx, &service.PurchaseRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		PackageID: "starter",
		MethodID:  "credit_card",
		Details:   &paymentflow.Details{CardNumber: "1234"},
	})
	assert.ErrorIs(t, err, paymentflow.ErrInvalidDetails)
	assert.Equal(t, int64(0), countRows(t, env.db, &model.PaymentTransaction{}))
}

func TestListPayments(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	for _, reqID := range []string{"req-1", "req-2"} {
		_, err := env.payment.Purchase(ctx, &service.PurchaseRequest{
			RequestID: reqID,
			UserID:    "user-1",
			PackageID: "starter",
			MethodID:  "kakaopay",
		})
		require.NoError(t, err)
	}

	payments, total, err := env.payment.ListPayments(ctx, "user-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, payments, 2)
}
