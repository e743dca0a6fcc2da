package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/infrastructure/lock"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/repository"
	"github.com/zoynulabedin/snowlightv2-sub001/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrRefundWindowExpired = errors.New("已超出退款期限")
	ErrNotPaymentOwner     = errors.New("无权操作该笔支付")
	// ErrReversalInsufficient 用户已把红心花掉，余额不足以冲正
	// 【关键点】这种情况必须拒绝退款，而不是把账户扣成负数
	ErrReversalInsufficient = errors.New("红心余额不足，无法退款")
)

// RefundService 退款流程
//
// 资格校验：归属本人、未退过款、在退款窗口内
// 成功路径在同一个事务内完成：冲正流水（余额充足性由条件更新保证）
// + 标记 refunded_at + 外发退款事件
type RefundService struct {
	db          *gorm.DB
	cfg         *config.Config
	ledger      *LedgerService
	paymentRepo *repository.PaymentRepository
	outboxRepo  *repository.OutboxRepository
	locks       lock.Factory
}

func NewRefundService(db *gorm.DB, cfg *config.Config, ledger *LedgerService, locks lock.Factory) *RefundService {
	return &RefundService{
		db:          db,
		cfg:         cfg,
		ledger:      ledger,
		paymentRepo: repository.NewPaymentRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		locks:       locks,
	}
}

type RefundRequest struct {
	RequestID string `json:"request_id"` // 幂等ID
	UserID    string `json:"user_id"`
	PaymentNo string `json:"payment_no"`
	Reason    string `json:"reason"`
}

type RefundResponse struct {
	RefundNo       string `json:"refund_no"`
	PaymentNo      string `json:"payment_no"`
	HeartsReversed int64  `json:"hearts_reversed"`
	Balance        int64  `json:"balance"` // 冲正后余额
	Message        string `json:"message,omitempty"`
}

// Refund 执行退款
func (s *RefundService) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	payment, err := s.paymentRepo.GetByPaymentNo(ctx, req.PaymentNo)
	if err != nil {
		return nil, err
	}

	if payment.UserID != req.UserID {
		return nil, ErrNotPaymentOwner
	}
	if payment.Refunded() {
		return nil, repository.ErrAlreadyRefunded
	}

	// 退款窗口：自支付创建起 N 天内
	window := time.Duration(s.cfg.Business.RefundWindowDays) * 24 * time.Hour
	if time.Since(payment.CreatedAt) > window {
		return nil, ErrRefundWindowExpired
	}

	// 按支付单加锁，防止并发重复退款
	refundLock := s.locks.RefundLock(req.PaymentNo, req.RequestID)
	if err := refundLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer refundLock.Unlock(ctx)

	// 获取锁后重新校验
	payment, err = s.paymentRepo.GetByPaymentNo(ctx, req.PaymentNo)
	if err != nil {
		return nil, err
	}
	if payment.Refunded() {
		return nil, repository.ErrAlreadyRefunded
	}

	refundNo := idgen.GenerateRefundNo()
	reason := fmt.Sprintf("退款冲正-%s", refundNo)
	if req.Reason != "" {
		reason += "-" + req.Reason
	}

	var newBalance int64
	err = s.ledger.WithRetryTx(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			// 冲正流水：条件更新保证余额充足，否则整个事务回滚
			trans, err := s.ledger.ApplyTx(ctx, tx, req.UserID, -payment.HeartsGranted,
				model.TransactionTypeSpend, reason, payment.PaymentNo)
			if err != nil {
				return err
			}
			newBalance = trans.BalanceAfter

			if err := s.paymentRepo.MarkRefunded(ctx, tx, payment.PaymentNo, time.Now()); err != nil {
				return err
			}

			msgPayload := map[string]interface{}{
				"refund_no":       refundNo,
				"payment_no":      payment.PaymentNo,
				"user_id":         req.UserID,
				"hearts_reversed": payment.HeartsGranted,
				"reason":          req.Reason,
				"refunded_at":     time.Now().Format(time.RFC3339),
			}
			payloadBytes, _ := json.Marshal(msgPayload)

			outboxMsg := &model.OutboxMessage{
				MessageKey: refundNo,
				Topic:      s.cfg.Kafka.Topic.RefundResult,
				Payload:    string(payloadBytes),
				Status:     model.OutboxStatusPending,
			}
			return s.outboxRepo.Create(ctx, tx, outboxMsg)
		})
	})

	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotEnough) {
			return nil, ErrReversalInsufficient
		}
		return nil, err
	}

	log.Printf("退款成功: refundNo=%s, paymentNo=%s, hearts=%d",
		refundNo, payment.PaymentNo, payment.HeartsGranted)

	return &RefundResponse{
		RefundNo:       refundNo,
		PaymentNo:      payment.PaymentNo,
		HeartsReversed: payment.HeartsGranted,
		Balance:        newBalance,
		Message:        "환불이 완료되었습니다",
	}, nil
}
