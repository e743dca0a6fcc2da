package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景：用户A的购买请求被重复提交（网络抖动、连点按钮）
//
// 没有锁时：
//   goroutine1: 幂等检查未命中 -> 扣费 -> 入账
//   goroutine2: 幂等检查未命中 -> 扣费 -> 入账   同一笔买成了两笔！
//
// 加锁之后，第二个请求要么等待后命中幂等记录，要么直接失败重试
//
// 【Redis 锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: key 不存在时才设置（互斥）
//   - EX: 过期时间（防止死锁）
//   - value: 持有者标识（释放时验证，防止误删他人的锁）
//
// 释放：Lua 脚本先比对 value 再删除，保证原子性
//
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// Lock 锁抽象
// 服务层只依赖该接口；测试和单机部署可用 Noop 实现
type Lock interface {
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// Factory 按业务维度创建锁
type Factory interface {
	// PaymentLock 购买锁，按用户维度：同一用户的购买串行，不同用户互不影响
	PaymentLock(userID, requestID string) Lock
	// RefundLock 退款锁，按支付单维度
	RefundLock(paymentNo, requestID string) Lock
}

// ----------------------------------------------------------------------------
// Redis 实现
// ----------------------------------------------------------------------------

type RedisLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识
	expiration time.Duration
}

func NewRedisLock(client *redis.Client, key, value string, expiration time.Duration) *RedisLock {
	return &RedisLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞获取
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取（带重试）
func (l *RedisLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// Lua 脚本保证"检查持有者+删除"原子执行，锁过期后不会误删他人的锁
func (l *RedisLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// RedisFactory 生产环境的锁工厂
type RedisFactory struct {
	client *redis.Client
}

func NewRedisFactory(client *redis.Client) *RedisFactory {
	return &RedisFactory{client: client}
}

func (f *RedisFactory) PaymentLock(userID, requestID string) Lock {
	key := fmt.Sprintf("payment:lock:user:%s", userID)
	// value 使用 requestID，便于追踪是哪个请求持有锁
	return NewRedisLock(f.client, key, requestID, 30*time.Second)
}

func (f *RedisFactory) RefundLock(paymentNo, requestID string) Lock {
	key := fmt.Sprintf("refund:lock:payment:%s", paymentNo)
	return NewRedisLock(f.client, key, requestID, 30*time.Second)
}

// ----------------------------------------------------------------------------
// Noop 实现（单机/测试用）
// ----------------------------------------------------------------------------

type noopLock struct{}

func (noopLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	return nil
}

func (noopLock) Unlock(ctx context.Context) error { return nil }

// NoopFactory 不加锁的工厂，数据库的条件更新仍然兜底
type NoopFactory struct{}

func (NoopFactory) PaymentLock(userID, requestID string) Lock { return noopLock{} }

func (NoopFactory) RefundLock(paymentNo, requestID string) Lock { return noopLock{} }
