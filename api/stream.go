package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"spellgate/common/http"
	"spellgate/common/log"
	"spellgate/engine"
	"spellgate/poll"
	"spellgate/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

var errUnknownAction = errors.New("unknown action")

// Action 浏览器通过长连接发来的玩家动作
type Action struct {
	Action     string `json:"action"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	HandIndex  *int   `json:"hand_index"`
	Reason     string `json:"reason"`
}

// StreamHandler GET /games/:id/stream
// 连接期间绑定一个轮询器（?no_poll 时不绑定），断开时释放；
// 轮询结果和动作结果都经过同一个 View 的序号保护
func (g *Gateway) StreamHandler(c *http.Context) error {
	gameID := c.GetParam("id")
	playerID := c.PlayerID()

	ws, err := upgrader.Upgrade(c.Writer(), c.Request(), nil)
	if err != nil {
		// Upgrade 已经写好了错误响应
		log.Debug("websocket 升级失败, game=%s, err:%v", gameID, err)
		return nil
	}

	conn := stream.NewConnection(ws, uuid.NewString())
	view := poll.NewView(func(u poll.Update) {
		conn.Send(g.frameFor(u))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !c.HasQuery("no_poll") {
		poller := poll.Attach(ctx, gameID, view, func(ctx context.Context) (engine.Snapshot, error) {
			return g.client.GetState(ctx, gameID)
		}, g.opts.PollInterval)
		defer poller.Stop()
	}

	log.Info("玩家[%s] 连接游戏[%s], conn=%s", playerID, gameID, conn.ConnID)
	conn.Run(func(message []byte) {
		g.handleAction(ctx, conn, view, gameID, playerID, message)
	}, func([]byte) {
		conn.Send(Frame{Type: frameNotice, Message: msgTooManyRequests})
	})
	log.Info("玩家[%s] 离开游戏[%s], conn=%s", playerID, gameID, conn.ConnID)
	return nil
}

func (g *Gateway) frameFor(u poll.Update) Frame {
	if u.Err != nil {
		return noticeFrame(u.Err)
	}
	html, err := renderBoard(g.pages, u.Snapshot)
	if err != nil {
		log.Error("渲染棋盘失败, seq=%d, err:%v", u.Seq, err)
		return Frame{Type: frameNotice, Message: msgBoardUnavailable}
	}
	return Frame{Type: frameSnapshot, Seq: u.Seq, State: u.Snapshot, HTML: html}
}

// handleAction 同一连接的动作在连接的处理 goroutine 里串行执行。
// 动作失败直接推提示，不经过 View，保证玩家一定能看到
func (g *Gateway) handleAction(ctx context.Context, conn *stream.Connection, view *poll.View, gameID, playerID string, message []byte) {
	var action Action
	if err := json.Unmarshal(message, &action); err != nil {
		conn.Send(Frame{Type: frameNotice, Message: "Invalid action"})
		return
	}
	if g.opts.Limiter != nil && !g.opts.Limiter.Allow(ctx, playerID) {
		conn.Send(Frame{Type: frameNotice, Message: msgTooManyRequests})
		return
	}

	seq := view.Begin()
	snapshot, err := g.dispatch(ctx, gameID, playerID, action)
	if err != nil {
		if errors.Is(err, errUnknownAction) {
			conn.Send(Frame{Type: frameNotice, Message: "Invalid action"})
			return
		}
		conn.Send(noticeFrame(err))
		return
	}
	view.Apply(seq, snapshot)
}

func (g *Gateway) dispatch(ctx context.Context, gameID, playerID string, action Action) (engine.Snapshot, error) {
	switch action.Action {
	case engine.OpAnswer:
		return g.client.AnswerQuestion(ctx, engine.AnswerQuestion{
			GameID:     gameID,
			PlayerID:   playerID,
			QuestionID: action.QuestionID,
			Answer:     action.Answer,
		})
	case engine.OpCast:
		if action.HandIndex == nil || *action.HandIndex < 0 {
			return nil, fmt.Errorf("%w: cast without hand_index", errUnknownAction)
		}
		return g.client.CastCard(ctx, engine.CastCard{
			GameID:    gameID,
			PlayerID:  playerID,
			HandIndex: *action.HandIndex,
		})
	case engine.OpEndTurn:
		return g.client.EndTurn(ctx, engine.EndTurn{GameID: gameID})
	case engine.OpEnd:
		return g.client.EndGame(ctx, engine.EndGame{
			GameID:   gameID,
			PlayerID: playerID,
			Reason:   action.Reason,
		})
	case engine.OpState:
		return g.client.GetState(ctx, gameID)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action.Action)
	}
}
