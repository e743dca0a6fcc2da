package paymentflow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Details 支付方式明细表单
// 这是模拟集成：字段只做非空/格式校验，绝不发送给真实支付渠道
type Details struct {
	CardNumber string `json:"card_number,omitempty"`
	CardExpiry string `json:"card_expiry,omitempty"` // MM/YY
	CardCVV    string `json:"card_cvv,omitempty"`
	Phone      string `json:"phone,omitempty"`
	BankHolder string `json:"bank_holder,omitempty"`
	BankNumber string `json:"bank_number,omitempty"`
}

var ErrInvalidDetails = errors.New("支付明细格式错误")

var (
	cardNumberRe = regexp.MustCompile(`^\d{15,16}$`)
	cardExpiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardCVVRe    = regexp.MustCompile(`^\d{3,4}$`)
	phoneRe      = regexp.MustCompile(`^\d{10,11}$`)
)

// ValidateDetails 按支付方式校验明细的形状
// 只校验"像不像"，不做 Luhn 等真实验证
func ValidateDetails(methodID string, d *Details) error {
	switch methodID {
	case "credit_card":
		if d == nil {
			return fmt.Errorf("%w: 缺少卡片信息", ErrInvalidDetails)
		}
		if !cardNumberRe.MatchString(strings.ReplaceAll(d.CardNumber, " ", "")) {
			return fmt.Errorf("%w: 卡号应为15-16位数字", ErrInvalidDetails)
		}
		if !cardExpiryRe.MatchString(d.CardExpiry) {
			return fmt.Errorf("%w: 有效期应为 MM/YY", ErrInvalidDetails)
		}
		if !cardCVVRe.MatchString(d.CardCVV) {
			return fmt.Errorf("%w: CVV 应为3-4位数字", ErrInvalidDetails)
		}
	case "phone_payment":
		if d == nil || !phoneRe.MatchString(strings.ReplaceAll(d.Phone, "-", "")) {
			return fmt.Errorf("%w: 手机号应为10-11位数字", ErrInvalidDetails)
		}
	case "bank_transfer":
		if d == nil || strings.TrimSpace(d.BankHolder) == "" || strings.TrimSpace(d.BankNumber) == "" {
			return fmt.Errorf("%w: 需填写户名与账号", ErrInvalidDetails)
		}
	case "kakaopay":
		// 跳转式支付，无需明细
	default:
		return fmt.Errorf("%w: 未知支付方式 %s", ErrInvalidDetails, methodID)
	}
	return nil
}
