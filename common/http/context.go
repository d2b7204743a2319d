package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context 封装 gin.Context，提供统一的请求/响应接口
type Context struct {
	ginCtx *gin.Context
}

func newContext(c *gin.Context) *Context {
	return &Context{ginCtx: c}
}

// Request 相关方法

// GetParam 获取路径参数
func (c *Context) GetParam(key string) string {
	return c.ginCtx.Param(key)
}

// GetQuery 获取查询参数
func (c *Context) GetQuery(key string) string {
	return c.ginCtx.Query(key)
}

// HasQuery 查询参数是否出现，不关心取值（?no_poll 这种开关）
func (c *Context) HasQuery(key string) bool {
	_, ok := c.ginCtx.GetQuery(key)
	return ok
}

// GetPostForm 获取表单字段
func (c *Context) GetPostForm(key string) string {
	return c.ginCtx.PostForm(key)
}

// GetHeader 获取请求头
func (c *Context) GetHeader(key string) string {
	return c.ginCtx.GetHeader(key)
}

// BindJSON 绑定 JSON 请求体
func (c *Context) BindJSON(obj any) error {
	return c.ginCtx.ShouldBindJSON(obj)
}

// Context 请求的 context，客户端断开时结束
func (c *Context) Context() context.Context {
	return c.ginCtx.Request.Context()
}

// Response 相关方法

// JSON 返回 JSON 响应
func (c *Context) JSON(code int, obj any) {
	c.ginCtx.JSON(code, obj)
}

// String 返回字符串响应
func (c *Context) String(code int, format string, values ...any) {
	c.ginCtx.String(code, format, values...)
}

// HTML 返回 HTML 响应
func (c *Context) HTML(code int, name string, obj any) {
	c.ginCtx.HTML(code, name, obj)
}

// Redirect 重定向
func (c *Context) Redirect(code int, location string) {
	c.ginCtx.Redirect(code, location)
}

// SetHeader 设置响应头
func (c *Context) SetHeader(key, value string) {
	c.ginCtx.Header(key, value)
}

// SetCookie 设置 Cookie
func (c *Context) SetCookie(name, value string, maxAge int, path string, httpOnly bool) {
	c.ginCtx.SetSameSite(http.SameSiteLaxMode)
	c.ginCtx.SetCookie(name, value, maxAge, path, "", false, httpOnly)
}

// GetCookie 获取 Cookie
func (c *Context) GetCookie(name string) (string, error) {
	return c.ginCtx.Cookie(name)
}

// 工具方法

// ClientIP 获取客户端 IP
func (c *Context) ClientIP() string {
	return c.ginCtx.ClientIP()
}

// Method 获取请求方法
func (c *Context) Method() string {
	return c.ginCtx.Request.Method
}

// Path 获取请求路径
func (c *Context) Path() string {
	return c.ginCtx.Request.URL.Path
}

// Set 设置上下文值
func (c *Context) Set(key string, value any) {
	c.ginCtx.Set(key, value)
}

// GetString 获取字符串类型的上下文值
func (c *Context) GetString(key string) string {
	return c.ginCtx.GetString(key)
}

// Next 在中间件里执行后续处理链
func (c *Context) Next() {
	c.ginCtx.Next()
}

// AbortWithStatus 中止请求并设置状态码
func (c *Context) AbortWithStatus(code int) {
	c.ginCtx.AbortWithStatus(code)
}

// StatusCode 已写出的响应状态码
func (c *Context) StatusCode() int {
	return c.ginCtx.Writer.Status()
}

// Writer 原始 ResponseWriter（websocket 升级用）
func (c *Context) Writer() http.ResponseWriter {
	return c.ginCtx.Writer
}

// Request 获取原始 http.Request（谨慎使用）
func (c *Context) Request() *http.Request {
	return c.ginCtx.Request
}
