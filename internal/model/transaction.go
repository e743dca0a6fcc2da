package model

import (
	"time"
)

// ============================================================================
// 红心流水类型常量
// ============================================================================

const (
	TransactionTypeBonus       = "BONUS"        // 注册/活动奖励
	TransactionTypeDailyLogin  = "DAILY_LOGIN"  // 每日登录奖励
	TransactionTypeUpload      = "UPLOAD"       // 上传作品奖励
	TransactionTypeShare       = "SHARE"        // 分享奖励
	TransactionTypePurchase    = "PURCHASE"     // 购买红心套餐入账
	TransactionTypeSpend       = "SPEND"        // 消费（扣减）
	TransactionTypeAdminAdjust = "ADMIN_ADJUST" // 管理员调整
)

// CreditTypes 允许入账的流水类型
// SPEND 只能由扣减路径写入，不在其中
var CreditTypes = map[string]bool{
	TransactionTypeBonus:       true,
	TransactionTypeDailyLogin:  true,
	TransactionTypeUpload:      true,
	TransactionTypeShare:       true,
	TransactionTypePurchase:    true,
	TransactionTypeAdminAdjust: true,
}

// ============================================================================
// 红心流水实体
// ============================================================================

// HeartTransaction 红心流水表
// 记录账户的每一笔红心变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 纠错通过新增冲正流水完成
// 2. 与支付相关的流水必须记录支付单号 —— 便于对账
// 3. 记录变动前后余额 —— 便于校验余额一致性
type HeartTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UserID        string    `gorm:"type:varchar(64);index;not null" json:"user_id"`              // 用户ID
	RefPaymentNo  string    `gorm:"type:varchar(64);index" json:"ref_payment_no,omitempty"`      // 关联支付单号（购买/退款冲正时填写）
	Amount        int64     `gorm:"not null" json:"amount"`                                      // 红心数（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`                       // 流水类型
	Reason        string    `gorm:"type:varchar(256)" json:"reason"`                             // 备注
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                              // 变动前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                               // 变动后余额
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (HeartTransaction) TableName() string {
	return "heart_transaction"
}
