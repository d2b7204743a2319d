package api

import (
	nethttp "net/http"
	"strings"

	"spellgate/common/http"
	"spellgate/engine"
)

// 请求体只包含调用方可以决定的字段，player_id 一律取认证后的身份

type startRequest struct {
	Mode       string `json:"mode" binding:"required"`
	OpponentID string `json:"opponent_id"`
}

type answerRequest struct {
	GameID     string `json:"game_id" binding:"required"`
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

type castRequest struct {
	GameID    string `json:"game_id" binding:"required"`
	HandIndex *int   `json:"hand_index" binding:"required,min=0"`
}

type endTurnRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

type endGameRequest struct {
	GameID string `json:"game_id" binding:"required"`
	Reason string `json:"reason"`
}

func startCommand(playerID, mode, opponentID string) engine.StartGame {
	return engine.StartGame{
		PlayerID: playerID,
		Mode:     strings.TrimSpace(mode),
		// 空字符串不发送
		OpponentID: strings.TrimSpace(opponentID),
	}
}

// respond 成功时原样返回引擎快照
func respond(c *http.Context, snapshot engine.Snapshot, err error) error {
	if err != nil {
		presentJSON(c, err)
		return nil
	}
	c.JSON(nethttp.StatusOK, snapshot)
	return nil
}

// StartHandler POST /api/v1/game/start
func (g *Gateway) StartHandler(c *http.Context) error {
	var req startRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("mode is required")
		return nil
	}
	_, snapshot, err := g.client.StartGame(c.Context(), startCommand(c.PlayerID(), req.Mode, req.OpponentID))
	return respond(c, snapshot, err)
}

// AnswerHandler POST /api/v1/game/answer
func (g *Gateway) AnswerHandler(c *http.Context) error {
	var req answerRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("game_id, question_id and answer are required")
		return nil
	}
	snapshot, err := g.client.AnswerQuestion(c.Context(), engine.AnswerQuestion{
		GameID:     req.GameID,
		PlayerID:   c.PlayerID(),
		QuestionID: req.QuestionID,
		Answer:     req.Answer,
	})
	return respond(c, snapshot, err)
}

// CastHandler POST /api/v1/game/cast
func (g *Gateway) CastHandler(c *http.Context) error {
	var req castRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("game_id and a non-negative hand_index are required")
		return nil
	}
	snapshot, err := g.client.CastCard(c.Context(), engine.CastCard{
		GameID:    req.GameID,
		PlayerID:  c.PlayerID(),
		HandIndex: *req.HandIndex,
	})
	return respond(c, snapshot, err)
}

// EndTurnHandler POST /api/v1/game/endturn
func (g *Gateway) EndTurnHandler(c *http.Context) error {
	var req endTurnRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("game_id is required")
		return nil
	}
	snapshot, err := g.client.EndTurn(c.Context(), engine.EndTurn{GameID: req.GameID})
	return respond(c, snapshot, err)
}

// EndGameHandler POST /api/v1/game/end
func (g *Gateway) EndGameHandler(c *http.Context) error {
	var req endGameRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("game_id is required")
		return nil
	}
	snapshot, err := g.client.EndGame(c.Context(), engine.EndGame{
		GameID:   req.GameID,
		PlayerID: c.PlayerID(),
		Reason:   req.Reason,
	})
	return respond(c, snapshot, err)
}

// StateHandler GET /api/v1/game/state?game_id=
func (g *Gateway) StateHandler(c *http.Context) error {
	gameID := c.GetQuery("game_id")
	if gameID == "" {
		c.BadRequest("game_id is required")
		return nil
	}
	snapshot, err := g.client.GetState(c.Context(), gameID)
	return respond(c, snapshot, err)
}
