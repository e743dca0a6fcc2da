package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// 业务错误码
// 业务规则拒绝（余额不足、超出退款期限等）是预期结果，
// 返回业务码给前端展示，不算系统错误
const (
	CodeInsufficientHearts   = 1001
	CodePackageNotFound      = 1002
	CodeMethodNotFound       = 1003
	CodePaymentNotFound      = 1004
	CodeChargeDeclined       = 1005
	CodeRefundWindowExpired  = 1006
	CodeAlreadyRefunded      = 1007
	CodeReversalInsufficient = 1008
	CodeDuplicateRequest     = 1009
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
