package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/repository"
	"github.com/zoynulabedin/snowlightv2-sub001/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrInvalidAmount          = errors.New("红心数必须大于0")
	ErrInvalidTransactionType = errors.New("不支持的流水类型")
)

// casMaxRetries 乐观锁冲突时的重试次数
const casMaxRetries = 3

// LedgerService 红心账本服务
//
// 【关键点】余额变更与流水追加必须在同一个数据库事务内完成：
// 要么都成功，要么都失败，任何其他操作都观察不到中间状态。
// 并发控制采用版本号条件更新（CAS）+ 冲突重试，等价于行锁方案
type LedgerService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Credit 入账
// amount 必须为正；type 必须是入账类型（SPEND 只能走 Debit）
// 返回更新后的余额，便于前端立即刷新
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, txType, reason string) (int64, error) {
	return s.CreditRef(ctx, userID, amount, txType, reason, "")
}

// CreditRef 带支付单号的入账（购买红心时关联支付记录）
func (s *LedgerService) CreditRef(ctx context.Context, userID string, amount int64, txType, reason, refPaymentNo string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !model.CreditTypes[txType] {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTransactionType, txType)
	}

	var newBalance int64
	err := s.withRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			trans, err := s.ApplyTx(ctx, tx, userID, amount, txType, reason, refPaymentNo)
			if err != nil {
				return err
			}
			newBalance = trans.BalanceAfter
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit 出账（消费红心）
// 余额不足是预期的业务结果而不是异常：返回 (false, 当前余额, nil)，不产生任何写入
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64, reason string) (bool, int64, error) {
	return s.DebitRef(ctx, userID, amount, reason, "")
}

// DebitRef 带支付单号的出账（退款冲正时关联支付记录）
func (s *LedgerService) DebitRef(ctx context.Context, userID string, amount int64, reason, refPaymentNo string) (bool, int64, error) {
	if amount <= 0 {
		return false, 0, ErrInvalidAmount
	}

	var newBalance int64
	err := s.withRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			trans, err := s.ApplyTx(ctx, tx, userID, -amount, model.TransactionTypeSpend, reason, refPaymentNo)
			if err != nil {
				return err
			}
			newBalance = trans.BalanceAfter
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotEnough) {
			balance, berr := s.GetBalance(ctx, userID)
			if berr != nil {
				return false, 0, berr
			}
			return false, balance, nil
		}
		return false, 0, err
	}
	return true, newBalance, nil
}

// AdminAdjust 管理员调整，amount 可正可负
// 负向调整同样不允许把余额扣成负数
func (s *LedgerService) AdminAdjust(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	var newBalance int64
	err := s.withRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			trans, err := s.ApplyTx(ctx, tx, userID, amount, model.TransactionTypeAdminAdjust, reason, "")
			if err != nil {
				return err
			}
			newBalance = trans.BalanceAfter
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetBalance 查询余额，账户不存在视为0
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// GetHistory 按时间倒序分页返回流水
func (s *LedgerService) GetHistory(ctx context.Context, userID string, page, pageSize int) ([]*model.HeartTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

// ApplyTx 在调用方事务内执行一笔余额变更并追加流水
// delta 为符号数：正数入账，负数出账（出账由条件更新保证余额充足）
// 退款服务借此把冲正流水与退款标记合并进同一个事务
func (s *LedgerService) ApplyTx(ctx context.Context, tx *gorm.DB, userID string, delta int64, txType, reason, refPaymentNo string) (*model.HeartTransaction, error) {
	account, err := s.accountRepo.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取账户失败: %w", err)
	}

	if delta >= 0 {
		err = s.accountRepo.Increase(ctx, tx, userID, delta, account.Version)
	} else {
		err = s.accountRepo.Deduct(ctx, tx, userID, -delta, account.Version)
	}
	if err != nil {
		return nil, err
	}

	trans := &model.HeartTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UserID:        userID,
		RefPaymentNo:  refPaymentNo,
		Amount:        delta,
		Type:          txType,
		Reason:        reason,
		BalanceBefore: account.Balance,
		BalanceAfter:  account.Balance + delta,
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}

	return trans, nil
}

// WithRetryTx 供组合方（退款）复用的重试包装
func (s *LedgerService) WithRetryTx(fn func() error) error {
	return s.withRetry(fn)
}

func (s *LedgerService) withRetry(fn func() error) error {
	var err error
	for i := 0; i < casMaxRetries; i++ {
		err = fn()
		if !errors.Is(err, repository.ErrOptimisticLock) {
			return err
		}
	}
	return err
}
