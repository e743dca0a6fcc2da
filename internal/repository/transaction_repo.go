package repository

import (
	"context"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.HeartTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.HeartTransaction, error) {
	var trans model.HeartTransaction
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// GetByRefPaymentNo 查支付单关联的流水（对账、重复退款检查用）
func (r *TransactionRepository) GetByRefPaymentNo(ctx context.Context, refPaymentNo string, txType string) (*model.HeartTransaction, error) {
	var trans model.HeartTransaction
	err := r.db.WithContext(ctx).
		Where("ref_payment_no = ? AND type = ?", refPaymentNo, txType).
		First(&trans).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// ListByUserID 按时间倒序分页返回用户流水
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.HeartTransaction, int64, error) {
	var transactions []*model.HeartTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.HeartTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// SumAmountByUserID 用户全部流水之和，对账任务用
// 不变量：任何时刻 SUM(amount) == heart_account.balance
func (r *TransactionRepository) SumAmountByUserID(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.HeartTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&sum)
	return sum, err
}

// ListRecentUserIDs 最近有流水变动的用户，对账任务分批扫描用
func (r *TransactionRepository) ListRecentUserIDs(ctx context.Context, limit int) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&model.HeartTransaction{}).
		Distinct("user_id").
		Order("user_id").
		Limit(limit).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
