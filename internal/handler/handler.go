package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/catalog"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/infrastructure/lock"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/paymentflow"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/repository"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/service"
	"github.com/zoynulabedin/snowlightv2-sub001/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
// user_id 由上游会话中间件校验后传入，这里不做凭证检查
type Handler struct {
	catalog        *catalog.Catalog
	ledgerService  *service.LedgerService
	paymentService *service.PaymentService
	refundService  *service.RefundService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	cat := catalog.NewCatalog(&cfg.Catalog)
	locks := lock.NewRedisFactory(rdb)
	processor := paymentflow.NewMockProcessor(
		time.Duration(cfg.Business.ChargeDelayMs)*time.Millisecond,
		cfg.Business.ChargeFailureRate,
		nil,
	)

	ledger := service.NewLedgerService(db)
	return &Handler{
		catalog:        cat,
		ledgerService:  ledger,
		paymentService: service.NewPaymentService(db, cfg, cat, ledger, locks, processor),
		refundService:  service.NewRefundService(db, cfg, ledger, locks),
	}
}

// writeError 把业务错误映射为业务码，其余按系统错误处理
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTransactionType),
		errors.Is(err, paymentflow.ErrInvalidDetails):
		response.ParamError(c, err.Error())
	case errors.Is(err, catalog.ErrPackageNotFound):
		response.BusinessError(c, response.CodePackageNotFound, err.Error())
	case errors.Is(err, catalog.ErrMethodNotFound):
		response.BusinessError(c, response.CodeMethodNotFound, err.Error())
	case errors.Is(err, paymentflow.ErrChargeDeclined):
		response.BusinessError(c, response.CodeChargeDeclined, err.Error())
	case errors.Is(err, repository.ErrPaymentNotFound):
		response.BusinessError(c, response.CodePaymentNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyRefunded):
		response.BusinessError(c, response.CodeAlreadyRefunded, err.Error())
	case errors.Is(err, service.ErrRefundWindowExpired):
		response.BusinessError(c, response.CodeRefundWindowExpired, err.Error())
	case errors.Is(err, service.ErrReversalInsufficient):
		response.BusinessError(c, response.CodeReversalInsufficient, err.Error())
	case errors.Is(err, service.ErrNotPaymentOwner):
		response.Error(c, response.CodeForbidden, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// ============================================================
// 红心账本接口
// ============================================================

// GetBalance 查询红心余额
// GET /api/v1/hearts/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ParamError(c, "user_id 参数不能为空")
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id": userID,
		"balance": balance,
	})
}

// GetHistory 查询红心流水（按时间倒序分页）
// GET /api/v1/hearts/history?user_id=xxx&page=1&page_size=20
func (h *Handler) GetHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ParamError(c, "user_id 参数不能为空")
		return
	}
	page, pageSize := pageParams(c)

	transactions, total, err := h.ledgerService.GetHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CreditRequest 入账请求（奖励类：注册/每日登录/上传/分享等）
type CreditRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Type   string `json:"type" binding:"required"`
	Reason string `json:"reason"`
}

// CreditHearts 入账
// POST /api/v1/hearts/credit
func (h *Handler) CreditHearts(c *gin.Context) {
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	newBalance, err := h.ledgerService.Credit(c.Request.Context(), req.UserID, req.Amount, req.Type, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"balance": newBalance,
	})
}

// DebitRequest 出账请求
type DebitRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason"`
}

// DebitHearts 出账（消费红心）
// POST /api/v1/hearts/debit
//
// 余额不足返回业务码而不是5xx：这是预期结果，前端提示用户充值即可
func (h *Handler) DebitHearts(c *gin.Context) {
	var req DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	ok, balance, err := h.ledgerService.Debit(c.Request.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		response.BusinessError(c, response.CodeInsufficientHearts, "红心余额不足")
		return
	}

	response.Success(c, gin.H{
		"balance": balance,
	})
}

// AdjustRequest 管理员调整请求，amount 可正可负
type AdjustRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// AdjustHearts 管理员调整
// POST /api/v1/hearts/adjust
func (h *Handler) AdjustHearts(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	newBalance, err := h.ledgerService.AdminAdjust(c.Request.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotEnough) {
			response.BusinessError(c, response.CodeInsufficientHearts, "红心余额不足")
			return
		}
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"balance": newBalance,
	})
}

// ============================================================
// 目录接口
// ============================================================

// ListPackages 红心套餐列表
// GET /api/v1/packages
func (h *Handler) ListPackages(c *gin.Context) {
	response.Success(c, gin.H{
		"list": h.catalog.ListPackages(),
	})
}

// ListMethods 支付方式列表
// GET /api/v1/payment-methods
func (h *Handler) ListMethods(c *gin.Context) {
	response.Success(c, gin.H{
		"list": h.catalog.ListMethods(),
	})
}

// ============================================================
// 支付接口
// ============================================================

// ExecutePaymentRequest 购买请求
type ExecutePaymentRequest struct {
	RequestID string               `json:"request_id" binding:"required"` // 幂等ID，客户端生成
	UserID    string               `json:"user_id" binding:"required"`
	PackageID string               `json:"package_id" binding:"required"`
	MethodID  string               `json:"method_id" binding:"required"`
	Details   *paymentflow.Details `json:"details"`
}

// ExecutePayment 购买红心套餐
// POST /api/v1/payments/execute
//
// 【关键点】
// 1. 幂等性：相同的 request_id 只会执行一次
// 2. 顺序性：渠道扣费 -> 红心入账 -> 支付记录，绝不出现有记录无入账
func (h *Handler) ExecutePayment(c *gin.Context) {
	var req ExecutePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.paymentService.Purchase(c.Request.Context(), &service.PurchaseRequest{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		PackageID: req.PackageID,
		MethodID:  req.MethodID,
		Details:   req.Details,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// GetPayment 查询支付详情
// GET /api/v1/payments/detail?payment_no=xxx
func (h *Handler) GetPayment(c *gin.Context) {
	paymentNo := c.Query("payment_no")
	if paymentNo == "" {
		response.ParamError(c, "payment_no 参数不能为空")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentNo)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, payment)
}

// ListPayments 支付历史
// GET /api/v1/payments/list?user_id=xxx&page=1&page_size=20
func (h *Handler) ListPayments(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.ParamError(c, "user_id 参数不能为空")
		return
	}
	page, pageSize := pageParams(c)

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      payments,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 退款接口
// ============================================================

// ExecuteRefundRequest 退款请求
type ExecuteRefundRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID
	UserID    string `json:"user_id" binding:"required"`
	PaymentNo string `json:"payment_no" binding:"required"`
	Reason    string `json:"reason"`
}

// ExecuteRefund 退款
// POST /api/v1/refunds/execute
//
// 【关键点】退款前必须确认用户当前余额足以冲正：
// 红心已被花掉时拒绝退款，绝不把账户扣成负数
func (h *Handler) ExecuteRefund(c *gin.Context) {
	var req ExecuteRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.refundService.Refund(c.Request.Context(), &service.RefundRequest{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		PaymentNo: req.PaymentNo,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}
