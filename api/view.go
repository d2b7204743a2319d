package api

import (
	"html/template"
	nethttp "net/http"
	"net/url"

	"spellgate/common/http"
	"spellgate/common/log"
	"spellgate/engine"
)

type lobbyPage struct {
	Notice string
	Player string
}

type gamePage struct {
	Notice string
	GameID string
	Board  template.HTML
	Mock   bool
	// Live 打开长连接；Poll 为 false 时长连接只用来发动作
	Live bool
	Poll bool
}

// LobbyHandler GET /
func (g *Gateway) LobbyHandler(c *http.Context) error {
	c.HTML(nethttp.StatusOK, pageLobby, lobbyPage{
		Notice: takeFlash(c),
		Player: c.PlayerID(),
	})
	return nil
}

// CreateGameHandler POST /games 开局后跳转到棋盘，失败带着提示回到大厅
func (g *Gateway) CreateGameHandler(c *http.Context) error {
	mode := c.GetPostForm("mode")
	if mode == "" {
		setFlash(c, msgStartFailed+"mode is required")
		c.Redirect(nethttp.StatusSeeOther, "/")
		return nil
	}

	gameID, _, err := g.client.StartGame(c.Context(), startCommand(c.PlayerID(), mode, c.GetPostForm("opponent_id")))
	if err != nil {
		setFlash(c, msgStartFailed+noticeMessage(err))
		c.Redirect(nethttp.StatusSeeOther, "/")
		return nil
	}
	c.Redirect(nethttp.StatusSeeOther, "/games/"+url.PathEscape(gameID))
	return nil
}

// ShowGameHandler GET /games/:id
// ?mock=true 用离线假数据（需要 dev.allowMock），?no_poll 关闭定时刷新
func (g *Gateway) ShowGameHandler(c *http.Context) error {
	gameID := c.GetParam("id")
	page := gamePage{
		Notice: takeFlash(c),
		GameID: gameID,
		Poll:   !c.HasQuery("no_poll"),
	}

	if c.GetQuery("mock") == "true" {
		if g.opts.AllowMock {
			page.Mock = true
			g.renderGame(c, page, engine.Fixture(""))
			return nil
		}
		log.Debug("mock 未开启，忽略 ?mock=true, game=%s", gameID)
	}

	snapshot, err := g.client.GetState(c.Context(), gameID)
	if err != nil {
		setFlash(c, msgGameNotFound)
		c.Redirect(nethttp.StatusSeeOther, "/")
		return nil
	}
	page.Live = true
	g.renderGame(c, page, snapshot)
	return nil
}

// renderGame 棋盘渲染失败时页面照常返回，只是换成提示，长连接的下一帧还能把棋盘补上
func (g *Gateway) renderGame(c *http.Context, page gamePage, snapshot engine.Snapshot) {
	board, err := renderBoard(g.pages, snapshot)
	if err != nil {
		log.Error("渲染棋盘失败, game=%s, err:%v", page.GameID, err)
		page.Notice = msgBoardUnavailable
	}
	page.Board = board
	c.HTML(nethttp.StatusOK, pageGame, page)
}
