package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/catalog"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/infrastructure/lock"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/paymentflow"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/repository"
	"github.com/zoynulabedin/snowlightv2-sub001/pkg/idgen"

	"gorm.io/gorm"
)

// PaymentService 购买红心套餐
//
// 【关键点】一次购买分三步，严格按此顺序执行：
//  1. 模拟渠道扣费（无任何本地写入，失败可直接重试）
//  2. 红心入账（独立事务）
//  3. 写支付记录 + 外发消息（独立事务）
//
// 步骤之间崩溃的最坏结果是"扣了费没入账"（渠道是模拟的，无真实损失）
// 或"入了账没留支付记录"——后者由对账任务暴露出来人工处理，
// 永远不会出现"有支付记录但没有对应入账流水"
type PaymentService struct {
	db          *gorm.DB
	cfg         *config.Config
	catalog     *catalog.Catalog
	ledger      *LedgerService
	paymentRepo *repository.PaymentRepository
	outboxRepo  *repository.OutboxRepository
	locks       lock.Factory
	processor   paymentflow.Processor
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, cat *catalog.Catalog, ledger *LedgerService, locks lock.Factory, processor paymentflow.Processor) *PaymentService {
	return &PaymentService{
		db:          db,
		cfg:         cfg,
		catalog:     cat,
		ledger:      ledger,
		paymentRepo: repository.NewPaymentRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		locks:       locks,
		processor:   processor,
	}
}

type PurchaseRequest struct {
	RequestID string               `json:"request_id"` // 幂等ID，客户端生成
	UserID    string               `json:"user_id"`
	PackageID string               `json:"package_id"`
	MethodID  string               `json:"method_id"`
	Details   *paymentflow.Details `json:"details"`
}

type PurchaseResponse struct {
	PaymentNo     string `json:"payment_no"`
	PackageID     string `json:"package_id"`
	MethodID      string `json:"method_id"`
	Amount        int64  `json:"amount"` // 实付金额 = 套餐价格 + 手续费
	Fee           int64  `json:"fee"`
	HeartsGranted int64  `json:"hearts_granted"`
	Balance       int64  `json:"balance"` // 入账后余额
	Message       string `json:"message,omitempty"`
}

// Purchase 执行购买
func (s *PaymentService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	// 目录校验：未知套餐/支付方式是客户端错误，不触达任何状态
	pkg, err := s.catalog.FindPackage(req.PackageID)
	if err != nil {
		return nil, err
	}
	method, err := s.catalog.FindMethod(req.MethodID)
	if err != nil {
		return nil, err
	}
	if err := paymentflow.ValidateDetails(method.ID, req.Details); err != nil {
		return nil, err
	}

	amount := catalog.TotalPrice(pkg, method)
	heartsGranted := pkg.TotalHearts()

	// 幂等校验
	existing, err := s.paymentRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}
	if existing != nil {
		return s.replayResponse(ctx, existing)
	}

	// 按用户加锁，防止重复提交并发通过幂等检查
	payLock := s.locks.PaymentLock(req.UserID, req.RequestID)
	if err := payLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer payLock.Unlock(ctx)

	// 获取锁后再次检查幂等
	existing, err = s.paymentRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}
	if existing != nil {
		return s.replayResponse(ctx, existing)
	}

	// 第一步：模拟渠道扣费，不写任何本地状态
	if err := s.processor.Charge(ctx, method.ID, amount); err != nil {
		return nil, err
	}

	paymentNo := idgen.GeneratePaymentNo()
	reason := fmt.Sprintf("购买红心套餐 %s（%d+%d）", pkg.ID, pkg.Hearts, pkg.Bonus)

	// 第二步：红心入账，确认成功后才允许写支付记录
	newBalance, err := s.ledger.CreditRef(ctx, req.UserID, heartsGranted, model.TransactionTypePurchase, reason, paymentNo)
	if err != nil {
		return nil, fmt.Errorf("红心入账失败: %w", err)
	}

	// 第三步：支付记录 + 外发消息
	payment := &model.PaymentTransaction{
		PaymentNo:     paymentNo,
		RequestID:     req.RequestID,
		UserID:        req.UserID,
		PackageID:     pkg.ID,
		MethodID:      method.ID,
		Amount:        amount,
		Fee:           method.Fee,
		HeartsGranted: heartsGranted,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("创建支付记录失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"payment_no":     paymentNo,
			"user_id":        req.UserID,
			"package_id":     pkg.ID,
			"method_id":      method.ID,
			"amount":         amount,
			"hearts_granted": heartsGranted,
			"paid_at":        time.Now().Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: paymentNo,
			Topic:      s.cfg.Kafka.Topic.PaymentResult,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		// 入账已提交但支付记录缺失：对账任务会暴露这笔不一致，人工处理
		log.Printf("[PaymentService] 入账成功但支付记录写入失败: paymentNo=%s, userID=%s, err=%v",
			paymentNo, req.UserID, err)
		return nil, err
	}

	log.Printf("支付成功: paymentNo=%s, userID=%s, amount=%d, hearts=%d",
		paymentNo, req.UserID, amount, heartsGranted)

	return &PurchaseResponse{
		PaymentNo:     paymentNo,
		PackageID:     pkg.ID,
		MethodID:      method.ID,
		Amount:        amount,
		Fee:           method.Fee,
		HeartsGranted: heartsGranted,
		Balance:       newBalance,
		Message:       "결제가 완료되었습니다",
	}, nil
}

// replayResponse 幂等重放：返回已存在的支付结果
func (s *PaymentService) replayResponse(ctx context.Context, payment *model.PaymentTransaction) (*PurchaseResponse, error) {
	balance, err := s.ledger.GetBalance(ctx, payment.UserID)
	if err != nil {
		return nil, err
	}
	return &PurchaseResponse{
		PaymentNo:     payment.PaymentNo,
		PackageID:     payment.PackageID,
		MethodID:      payment.MethodID,
		Amount:        payment.Amount,
		Fee:           payment.Fee,
		HeartsGranted: payment.HeartsGranted,
		Balance:       balance,
		Message:       "订单已存在",
	}, nil
}

// GetPayment 查询支付详情
func (s *PaymentService) GetPayment(ctx context.Context, paymentNo string) (*model.PaymentTransaction, error) {
	return s.paymentRepo.GetByPaymentNo(ctx, paymentNo)
}

// ListPayments 支付历史，按时间倒序分页
func (s *PaymentService) ListPayments(ctx context.Context, userID string, page, pageSize int) ([]*model.PaymentTransaction, int64, error) {
	return s.paymentRepo.ListByUserID(ctx, userID, page, pageSize)
}
