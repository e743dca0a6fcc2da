package repository

import (
	"context"
	"errors"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("红心余额不足")
	ErrOptimisticLock   = errors.New("乐观锁冲突，请重试")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) (*model.HeartAccount, error) {
	var account model.HeartAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetOrCreate 账户随首笔流水隐式创建，初始余额为0
func (r *AccountRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID string) (*model.HeartAccount, error) {
	if tx == nil {
		tx = r.db
	}

	newAccount := &model.HeartAccount{
		UserID:  userID,
		Balance: 0,
	}

	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error
	if err != nil {
		return nil, err
	}

	var account model.HeartAccount
	err = tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Increase 入账
// 带版本号条件更新，RowsAffected == 0 说明并发修改，调用方重试
func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, userID string, amount int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.HeartAccount{}).
		Where("user_id = ? AND version = ?", userID, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByUserID(ctx, userID); err != nil {
			return err
		}
		return ErrOptimisticLock
	}

	return nil
}

// Deduct 出账
// 【关键点】余额充足性判断与扣减在同一条 UPDATE 中完成：
// WHERE balance >= amount AND version = ? 保证两笔并发扣减不会
// 基于同一份过期余额同时通过校验而把账户扣成负数
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, userID string, amount int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.HeartAccount{}).
		Where("user_id = ? AND balance >= ? AND version = ?", userID, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 区分"余额不足"和"版本冲突"
		account, err := r.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}
