package model

import (
	"time"
)

// HeartAccount 红心账户表
// 记录用户的红心余额，是整个红心钱包的核心数据
//
// 【不变量】balance 恒等于该用户所有流水 amount 之和，且永不为负
type HeartAccount struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"` // 用户ID，由会话中间件校验后传入
	Balance   int64     `gorm:"not null;default:0" json:"balance"`                    // 可用红心数
	Version   int       `gorm:"not null;default:0" json:"version"`                    // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (HeartAccount) TableName() string {
	return "heart_account"
}
