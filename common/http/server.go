package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spellgate/common/log"
)

type HandlerFunc func(*Context) error
type MiddlewareFunc func(*Context) error

// HttpServer HTTP 服务器封装
type HttpServer struct {
	engine *gin.Engine
	server *http.Server
	port   int
}

// ServerOption 服务器配置选项
type ServerOption func(*HttpServer)

// WithPort 设置端口
func WithPort(port int) ServerOption {
	return func(s *HttpServer) {
		s.port = port
	}
}

// WithMode 设置运行模式
func WithMode(mode string) ServerOption {
	return func(s *HttpServer) {
		gin.SetMode(mode)
	}
}

// NewHttpServer 创建 HTTP 服务器
func NewHttpServer(opts ...ServerOption) *HttpServer {
	server := &HttpServer{
		engine: gin.New(),
		port:   8080,
	}

	for _, opt := range opts {
		opt(server)
	}

	server.engine.Use(gin.Recovery())
	server.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", server.port),
		Handler:           server.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server
}

// wrapHandler 包装处理函数，错误不透出给调用方，只记日志
func (s *HttpServer) wrapHandler(handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		if err := handler(ctx); err != nil {
			log.Error("%s %s 处理出错, requestID=%s, err:%v", ctx.Method(), ctx.Path(), ctx.GetString(KeyRequestID), err)
			if !c.Writer.Written() {
				ctx.InternalServerError("")
			}
		}
	}
}

// wrapMiddleware 包装中间件。中间件可以自己调用 Next，也可以 Abort
func (s *HttpServer) wrapMiddleware(middleware MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := newContext(c)
		if err := middleware(ctx); err != nil {
			log.Error("%s %s 中间件出错, err:%v", ctx.Method(), ctx.Path(), err)
			ctx.InternalServerError("")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GET 注册 GET 路由
func (s *HttpServer) GET(path string, handler HandlerFunc) {
	s.engine.GET(path, s.wrapHandler(handler))
}

// POST 注册 POST 路由
func (s *HttpServer) POST(path string, handler HandlerFunc) {
	s.engine.POST(path, s.wrapHandler(handler))
}

// Group 创建路由组
func (s *HttpServer) Group(relativePath string, middlewares ...MiddlewareFunc) *RouterGroup {
	ginGroup := s.engine.Group(relativePath)
	for _, middleware := range middlewares {
		ginGroup.Use(s.wrapMiddleware(middleware))
	}
	return &RouterGroup{
		group:  ginGroup,
		server: s,
	}
}

// RouterGroup 路由组封装
type RouterGroup struct {
	group  *gin.RouterGroup
	server *HttpServer
}

// GET 路由组 GET 方法
func (rg *RouterGroup) GET(path string, handler HandlerFunc) {
	rg.group.GET(path, rg.server.wrapHandler(handler))
}

// POST 路由组 POST 方法
func (rg *RouterGroup) POST(path string, handler HandlerFunc) {
	rg.group.POST(path, rg.server.wrapHandler(handler))
}

// Use 添加中间件到路由组
func (rg *RouterGroup) Use(middlewares ...MiddlewareFunc) {
	for _, middleware := range middlewares {
		rg.group.Use(rg.server.wrapMiddleware(middleware))
	}
}

// Group 创建子路由组
func (rg *RouterGroup) Group(relativePath string, middlewares ...MiddlewareFunc) *RouterGroup {
	ginGroup := rg.group.Group(relativePath)
	for _, middleware := range middlewares {
		ginGroup.Use(rg.server.wrapMiddleware(middleware))
	}
	return &RouterGroup{
		group:  ginGroup,
		server: rg.server,
	}
}

// Use 添加全局中间件
func (s *HttpServer) Use(middlewares ...MiddlewareFunc) {
	for _, middleware := range middlewares {
		s.engine.Use(s.wrapMiddleware(middleware))
	}
}

// SetHTMLTemplate 设置页面模板
func (s *HttpServer) SetHTMLTemplate(tmpl *template.Template) {
	s.engine.SetHTMLTemplate(tmpl)
}

// ServeHTTP 让 HttpServer 可以直接交给 httptest 使用
func (s *HttpServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Start 启动服务器，阻塞直到关闭
func (s *HttpServer) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭服务器
func (s *HttpServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
