package engine

// 每个命令只携带引擎契约要求的字段，可选字段为空时不发送

type StartGame struct {
	PlayerID   string `json:"player_id"`
	Mode       string `json:"mode"`
	OpponentID string `json:"opponent_id,omitempty"`
}

type AnswerQuestion struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type CastCard struct {
	GameID    string `json:"game_id"`
	PlayerID  string `json:"player_id"`
	HandIndex int    `json:"hand_index"`
}

type EndTurn struct {
	GameID string `json:"game_id"`
}

type EndGame struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

// 引擎路由
const (
	PathStart   = "/game/start"
	PathAnswer  = "/game/answer"
	PathPlay    = "/game/play"
	PathState   = "/game/state/"
	PathEndTurn = "/game/endturn"
	PathEnd     = "/game/end"
)

// 操作名，用于日志和指标
const (
	OpStart   = "start"
	OpAnswer  = "answer"
	OpCast    = "cast"
	OpState   = "state"
	OpEndTurn = "endturn"
	OpEnd     = "end"
)
