package job

import (
	"context"
	"log"
	"time"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/repository"

	"gorm.io/gorm"
)

// LedgerAuditJob 账本对账任务
//
// 周期性校验两件事，发现问题只告警不自动修复：
//  1. 每个账户 balance == SUM(流水 amount)
//  2. 每笔支付记录都有对应的 PURCHASE 入账流水
//     （入账与支付记录分两个事务写入，中间崩溃会留下"有入账无记录"；
//     反方向"有记录无入账"不应该出现，出现即是缺陷）
type LedgerAuditJob struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	paymentRepo     *repository.PaymentRepository
	cfg             *config.Config
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewLedgerAuditJob(db *gorm.DB, cfg *config.Config) *LedgerAuditJob {
	interval := time.Duration(cfg.Business.AuditIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &LedgerAuditJob{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		paymentRepo:     repository.NewPaymentRepository(db),
		cfg:             cfg,
		stopCh:          make(chan struct{}),
		interval:        interval,
		batchSize:       200,
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	log.Println("[LedgerAuditJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LedgerAuditJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LedgerAuditJob] 任务停止")
			return
		case <-ticker.C:
			j.auditBalances(ctx)
			j.auditPayments(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

// auditBalances 校验余额与流水之和一致
func (j *LedgerAuditJob) auditBalances(ctx context.Context) {
	userIDs, err := j.transactionRepo.ListRecentUserIDs(ctx, j.batchSize)
	if err != nil {
		log.Printf("[LedgerAuditJob] 查询用户失败: %v", err)
		return
	}

	mismatch := 0
	for _, userID := range userIDs {
		account, err := j.accountRepo.GetByUserID(ctx, userID)
		if err != nil {
			log.Printf("[LedgerAuditJob] 查询账户失败: userID=%s, err=%v", userID, err)
			continue
		}

		sum, err := j.transactionRepo.SumAmountByUserID(ctx, userID)
		if err != nil {
			log.Printf("[LedgerAuditJob] 汇总流水失败: userID=%s, err=%v", userID, err)
			continue
		}

		if account.Balance != sum {
			mismatch++
			log.Printf("[LedgerAuditJob] 余额不一致: userID=%s, balance=%d, sum=%d",
				userID, account.Balance, sum)
		}
		if account.Balance < 0 {
			log.Printf("[LedgerAuditJob] 出现负余额: userID=%s, balance=%d", userID, account.Balance)
		}
	}

	if mismatch > 0 {
		log.Printf("[LedgerAuditJob] 本轮发现 %d 个不一致账户", mismatch)
	}
}

// auditPayments 校验每笔支付都有对应的 PURCHASE 入账
func (j *LedgerAuditJob) auditPayments(ctx context.Context) {
	since := time.Now().Add(-24 * time.Hour)
	payments, err := j.paymentRepo.ListCreatedSince(ctx, since, j.batchSize)
	if err != nil {
		log.Printf("[LedgerAuditJob] 查询支付记录失败: %v", err)
		return
	}

	for _, payment := range payments {
		trans, err := j.transactionRepo.GetByRefPaymentNo(ctx, payment.PaymentNo, model.TransactionTypePurchase)
		if err != nil {
			log.Printf("[LedgerAuditJob] 查询流水失败: paymentNo=%s, err=%v", payment.PaymentNo, err)
			continue
		}
		if trans == nil {
			log.Printf("[LedgerAuditJob] 支付记录缺少对应入账流水: paymentNo=%s, userID=%s, hearts=%d",
				payment.PaymentNo, payment.UserID, payment.HeartsGranted)
			continue
		}
		if trans.Amount != payment.HeartsGranted {
			log.Printf("[LedgerAuditJob] 入账红心数与支付记录不符: paymentNo=%s, trans=%d, granted=%d",
				payment.PaymentNo, trans.Amount, payment.HeartsGranted)
		}
	}
}
