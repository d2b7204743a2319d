package api

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"spellgate/common/http"
	"spellgate/engine"
	"spellgate/engine/enginetest"
)

const (
	testSecret   = "test-secret"
	snapshotJSON = `{"game_id":"g1","player_hp":60,"player_max_hp":100,"opponent_hp":40,"hand":[{"id":"1","name":"Slash","cost":2}],"active_question":null}`
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	engine *enginetest.Engine
	server *http.HttpServer
	gw     *Gateway
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	fake := enginetest.New(t)
	transport := engine.NewTransport(fake.URL, engine.WithTimeout(time.Second))
	client := engine.NewClient(transport)

	opts.JwtSecret = testSecret
	opts.AllowTestHeader = true
	gw, err := New(client, transport, opts)
	require.NoError(t, err)

	server := http.NewHttpServer()
	RegisterRoutes(server, gw)
	return &harness{engine: fake, server: server, gw: gw}
}

// do 以玩家 p1 的身份发请求
func (h *harness) do(t *testing.T, method, path, body string, mutate ...func(*nethttp.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(http.HeaderTestPlayer, "p1")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	h.server.ServeHTTP(w, req)
	return w
}

func form(values string) func(*nethttp.Request) {
	return func(r *nethttp.Request) {
		r.Body = io.NopCloser(strings.NewReader(values))
		r.ContentLength = int64(len(values))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
}

func withCookie(name, value string) func(*nethttp.Request) {
	return func(r *nethttp.Request) {
		r.AddCookie(&nethttp.Cookie{Name: name, Value: value})
	}
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// flashOf 最后一个 flash Set-Cookie 的值
func flashOf(w *httptest.ResponseRecorder) string {
	value := ""
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == flashCookie {
			value = cookie.Value
		}
	}
	if unescaped, err := url.QueryUnescape(value); err == nil {
		return unescaped
	}
	return value
}
