package engine

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"spellgate/common/log"
)

// Observer 记录每次引擎调用的结果，outcome 为 ok 或错误分类
type Observer interface {
	ObserveCall(op, outcome string, elapsed time.Duration)
}

// Client 命令分发器：构造请求、调用传输层、归一化响应。
// 不缓存、不保存会话状态，每次调用都是一次完整往返
type Client struct {
	sender     Sender
	observer   Observer
	retryReads bool
}

type Option func(*Client)

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithReadRetry 对 GetState 的传输失败重试一次。写操作不是幂等的，从不重试
func WithReadRetry(enabled bool) Option {
	return func(c *Client) {
		c.retryReads = enabled
	}
}

func NewClient(sender Sender, opts ...Option) *Client {
	c := &Client{sender: sender}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartGame 开局，额外返回引擎分配的 game_id
func (c *Client) StartGame(ctx context.Context, cmd StartGame) (string, Snapshot, error) {
	snapshot, err := c.call(ctx, OpStart, http.MethodPost, PathStart, cmd)
	if err != nil {
		return "", nil, err
	}
	gameID, err := SessionID(snapshot)
	if err != nil {
		log.Warn("引擎 start 响应缺少 game_id, player=%s", cmd.PlayerID)
		return "", nil, err
	}
	return gameID, snapshot, nil
}

func (c *Client) AnswerQuestion(ctx context.Context, cmd AnswerQuestion) (Snapshot, error) {
	return c.call(ctx, OpAnswer, http.MethodPost, PathAnswer, cmd)
}

func (c *Client) CastCard(ctx context.Context, cmd CastCard) (Snapshot, error) {
	return c.call(ctx, OpCast, http.MethodPost, PathPlay, cmd)
}

func (c *Client) EndTurn(ctx context.Context, cmd EndTurn) (Snapshot, error) {
	return c.call(ctx, OpEndTurn, http.MethodPost, PathEndTurn, cmd)
}

func (c *Client) EndGame(ctx context.Context, cmd EndGame) (Snapshot, error) {
	return c.call(ctx, OpEnd, http.MethodPost, PathEnd, cmd)
}

func (c *Client) GetState(ctx context.Context, gameID string) (Snapshot, error) {
	path := PathState + url.PathEscape(gameID)
	snapshot, err := c.call(ctx, OpState, http.MethodGet, path, nil)
	if err != nil && c.retryReads && IsKind(err, KindTransport) && ctx.Err() == nil {
		log.Debug("引擎 state 传输失败，重试一次, game=%s", gameID)
		snapshot, err = c.call(ctx, OpState, http.MethodGet, path, nil)
	}
	return snapshot, err
}

func (c *Client) call(ctx context.Context, op, method, path string, body any) (Snapshot, error) {
	start := time.Now()
	status, raw, sendErr := c.sender.Send(ctx, method, path, body)
	snapshot, err := Normalize(status, raw, sendErr)

	outcome := "ok"
	if ee, ok := AsError(err); ok {
		outcome = ee.Kind.String()
		log.Warn("引擎调用失败 %s %s: %s", method, path, ee.Detail())
	}
	if c.observer != nil {
		c.observer.ObserveCall(op, outcome, time.Since(start))
	}
	return snapshot, err
}
