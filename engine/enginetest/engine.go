// Package enginetest 提供一个可编排响应的假引擎，供各个包的测试使用
package enginetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Request 假引擎收到的一次请求
type Request struct {
	Method      string
	Path        string
	ContentType string
	RawBody     []byte
	Body        map[string]any
}

type reply struct {
	status  int
	body    string
	handler http.HandlerFunc
}

type Engine struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	replies  map[string]reply
	fallback reply
}

// New 启动假引擎，测试结束时自动关闭。未编排的路由返回 404 {"error":"Not found"}
func New(t testing.TB) *Engine {
	e := &Engine{
		replies:  make(map[string]reply),
		fallback: reply{status: http.StatusNotFound, body: `{"error":"Not found"}`},
	}
	e.Server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.Close)
	return e
}

// Reply 为 method+path 编排固定响应
func (e *Engine) Reply(method, path string, status int, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies[method+" "+path] = reply{status: status, body: body}
}

// Handle 为 method+path 编排自定义处理函数（超时、断连等场景）
func (e *Engine) Handle(method, path string, handler http.HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies[method+" "+path] = reply{handler: handler}
}

// ReplyAll 所有未单独编排的路由都返回该响应
func (e *Engine) ReplyAll(status int, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = reply{status: status, body: body}
}

func (e *Engine) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// Count 某个路由被调用的次数
func (e *Engine) Count(method, path string) int {
	n := 0
	for _, req := range e.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

func (e *Engine) Last() Request {
	requests := e.Requests()
	if len(requests) == 0 {
		return Request{}
	}
	return requests[len(requests)-1]
}

func (e *Engine) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	req := Request{
		Method:      r.Method,
		Path:        r.URL.EscapedPath(),
		ContentType: r.Header.Get("Content-Type"),
		RawBody:     raw,
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &req.Body)
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	rep, ok := e.replies[r.Method+" "+req.Path]
	if !ok {
		rep = e.fallback
	}
	e.mu.Unlock()

	if rep.handler != nil {
		rep.handler(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}
