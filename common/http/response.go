package http

import "net/http"

// Response 网关自身的成功响应结构（ping/health）
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody 所有失败响应的结构，与引擎的错误体保持一致
type ErrorBody struct {
	Error string `json:"error"`
}

const (
	CodeSuccess = 0
	MsgSuccess  = "success"
)

// 预定义的错误消息
const (
	MsgInvalidParam       = "invalid parameters"
	MsgUnauthorized       = "unauthorized"
	MsgNotFound           = "not found"
	MsgTooManyRequests    = "too many requests"
	MsgServerError        = "internal server error"
	MsgServiceUnavailable = "service unavailable"
)

func NewResponse(code int, message string, data any) *Response {
	return &Response{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Success 成功响应
func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, NewResponse(CodeSuccess, MsgSuccess, data))
}

// Fail 以 {"error": message} 结束请求
func (c *Context) Fail(status int, message, fallback string) {
	if message == "" {
		message = fallback
	}
	c.ginCtx.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// BadRequest 400 错误请求
func (c *Context) BadRequest(message string) {
	c.Fail(http.StatusBadRequest, message, MsgInvalidParam)
}

// Unauthorized 401 未授权
func (c *Context) Unauthorized(message string) {
	c.Fail(http.StatusUnauthorized, message, MsgUnauthorized)
}

// NotFound 404 资源不存在
func (c *Context) NotFound(message string) {
	c.Fail(http.StatusNotFound, message, MsgNotFound)
}

// TooManyRequests 429 限流
func (c *Context) TooManyRequests(message string) {
	c.Fail(http.StatusTooManyRequests, message, MsgTooManyRequests)
}

// InternalServerError 500 服务器内部错误
func (c *Context) InternalServerError(message string) {
	c.Fail(http.StatusInternalServerError, message, MsgServerError)
}

// ServiceUnavailable 503 上游（游戏引擎）不可用或拒绝
func (c *Context) ServiceUnavailable(message string) {
	c.Fail(http.StatusServiceUnavailable, message, MsgServiceUnavailable)
}
