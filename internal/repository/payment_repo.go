package repository

import (
	"context"
	"errors"
	"time"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound  = errors.New("支付记录不存在")
	ErrAlreadyRefunded  = errors.New("该笔支付已退款，请勿重复操作")
	ErrDuplicateRequest = errors.New("重复请求")
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.PaymentTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByPaymentNo(ctx context.Context, paymentNo string) (*model.PaymentTransaction, error) {
	var payment model.PaymentTransaction
	err := r.db.WithContext(ctx).Where("payment_no = ?", paymentNo).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// GetByRequestID 幂等查询；不存在返回 nil 而非错误
func (r *PaymentRepository) GetByRequestID(ctx context.Context, requestID string) (*model.PaymentTransaction, error) {
	var payment model.PaymentTransaction
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// MarkRefunded 标记退款完成
// 条件 refunded_at IS NULL 保证同一笔支付只能退款一次
func (r *PaymentRepository) MarkRefunded(ctx context.Context, tx *gorm.DB, paymentNo string, refundedAt time.Time) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("payment_no = ? AND refunded_at IS NULL", paymentNo).
		Update("refunded_at", refundedAt)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAlreadyRefunded
	}

	return nil
}

func (r *PaymentRepository) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.PaymentTransaction, int64, error) {
	var payments []*model.PaymentTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PaymentTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error

	return payments, total, err
}

// ListCreatedSince 对账任务扫描用
func (r *PaymentRepository) ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]*model.PaymentTransaction, error) {
	var payments []*model.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
