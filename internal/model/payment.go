package model

import (
	"time"
)

// PaymentTransaction 支付记录表
// 记录一次（模拟的）真实货币支付，作为财务审计凭证
//
// 【不变量】
// 1. 每条支付记录对应且仅对应一条 PURCHASE 红心流水（amount == hearts_granted）
// 2. refunded_at 非空意味着已写入对应的冲正流水，余额已回退
// 3. 只创建、退款时更新 refunded_at，永不物理删除
type PaymentTransaction struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"` // 支付单号
	RequestID     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID，客户端生成
	UserID        string     `gorm:"type:varchar(64);index;not null" json:"user_id"`
	PackageID     string     `gorm:"type:varchar(32);not null" json:"package_id"`  // 购买的红心套餐
	MethodID      string     `gorm:"type:varchar(32);not null" json:"method_id"`   // 支付方式
	Amount        int64      `gorm:"not null" json:"amount"`                       // 实付金额 = 套餐价格 + 渠道手续费（韩元，最小货币单位）
	Fee           int64      `gorm:"not null;default:0" json:"fee"`                // 渠道手续费
	HeartsGranted int64      `gorm:"not null" json:"hearts_granted"`               // 入账红心数 = 套餐红心 + 赠送红心
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	RefundedAt    *time.Time `json:"refunded_at"` // 退款时间，未退款为空
}

func (PaymentTransaction) TableName() string {
	return "payment_transaction"
}

// Refunded 是否已退款
func (p *PaymentTransaction) Refunded() bool {
	return p.RefundedAt != nil
}
