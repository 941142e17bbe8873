package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody 统一错误响应结构,HTTP 状态码承载语义
type ErrorBody struct {
	Error string `json:"error"`
}

// OK 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Accepted 已受理,稍后异步处理
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: message})
}

// Unauthorized 认证失败
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: message})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "not found"
	}
	c.JSON(http.StatusNotFound, ErrorBody{Error: message})
}

// ServerError 服务器内部错误
func ServerError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: message})
}

// UpstreamError 上游依赖失败
func UpstreamError(c *gin.Context, message string) {
	if message == "" {
		message = "upstream service error"
	}
	c.JSON(http.StatusBadGateway, ErrorBody{Error: message})
}
