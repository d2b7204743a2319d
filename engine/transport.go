package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout = 5 * time.Second

	contentTypeJSON = "application/json"
	// 引擎返回的快照不会很大，超过上限按截断处理，交给 normalizer 判定为 malformed
	maxBodyBytes = 4 << 20
)

// Sender 发出一次请求，返回原始状态码和响应体。
// err 非空只表示请求没有完成（连接失败、超时），不解释状态码
type Sender interface {
	Send(ctx context.Context, method, path string, body any) (int, []byte, error)
}

// Transport 引擎 HTTP 传输层，baseURL 在构造时注入
type Transport struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

type TransportOption func(*Transport)

// WithHTTPClient 替换底层 http.Client（测试或自定义连接池）
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *Transport) {
		t.client = client
	}
}

// WithTimeout 设置单次请求上限，<=0 时使用默认值
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

func NewTransport(baseURL string, opts ...TransportOption) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Send 每次调用恰好一次网络请求，不重试。
// 调用方的取消不会中断已经发出的请求，只有超时会
func (t *Transport) Send(ctx context.Context, method, path string, body any) (int, []byte, error) {
	return t.do(context.WithoutCancel(ctx), method, path, body)
}

func (t *Transport) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil && method != http.MethodGet {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = buf
	}

	request, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Accept", contentTypeJSON)
	if reader != nil {
		request.Header.Set("Content-Type", contentTypeJSON)
	}

	response, err := t.client.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		// 收到部分字节也算传输失败
		return response.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return response.StatusCode, raw, nil
}

// Probe 检查引擎是否可达。任何 HTTP 响应都算可达，只报告传输层错误。
// 与 Send 不同，调用方的取消和截止时间都生效
func (t *Transport) Probe(ctx context.Context) error {
	_, _, err := t.do(ctx, http.MethodGet, "/", nil)
	return err
}
