package paymentflow

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrChargeDeclined 模拟渠道拒绝，属于可重试的预期失败
var ErrChargeDeclined = errors.New("결제가 거절되었습니다. 잠시 후 다시 시도해주세요")

// Processor 支付渠道抽象
// 本系统不接入真实渠道，生产环境使用 MockProcessor
type Processor interface {
	Charge(ctx context.Context, methodID string, amount int64) error
}

// MockProcessor 模拟支付渠道：固定延迟 + 按概率失败
// 随机源通过构造函数注入，失败路径测试可用固定种子复现
type MockProcessor struct {
	delay       time.Duration
	failureRate float64
	rng         *rand.Rand
}

func NewMockProcessor(delay time.Duration, failureRate float64, rng *rand.Rand) *MockProcessor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockProcessor{
		delay:       delay,
		failureRate: failureRate,
		rng:         rng,
	}
}

// Charge 模拟扣款
// 延迟期间响应 ctx 取消；命中失败概率时返回 ErrChargeDeclined
func (p *MockProcessor) Charge(ctx context.Context, methodID string, amount int64) error {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay):
		}
	}

	if p.rng.Float64() < p.failureRate {
		return ErrChargeDeclined
	}
	return nil
}
