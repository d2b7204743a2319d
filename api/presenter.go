package api

import (
	"html/template"

	"spellgate/common/http"
	"spellgate/common/log"
	"spellgate/engine"
)

const (
	flashCookie = "flash"

	msgStartFailed  = "Failed to start game: "
	msgGameNotFound = "Game not found or finished."
	msgGeneric      = "Something went wrong, please try again."

	msgBoardUnavailable = "Unable to display the game board."
	msgTooManyRequests  = "Too Many Requests"
)

// noticeMessage 给玩家看的错误文案。引擎错误用它自带的消息，其它错误一律换成通用文案
func noticeMessage(err error) string {
	if ee, ok := engine.AsError(err); ok {
		return ee.Message
	}
	return msgGeneric
}

// presentJSON JSON 调用方：引擎错误 503 {"error": msg}，其它错误 500
func presentJSON(c *http.Context, err error) {
	if ee, ok := engine.AsError(err); ok {
		c.ServiceUnavailable(ee.Message)
		return
	}
	log.Error("%s %s 非引擎错误, requestID=%s, err:%v", c.Method(), c.Path(), c.GetString(http.KeyRequestID), err)
	c.InternalServerError("")
}

// setFlash 下一个页面展示一次的提示
func setFlash(c *http.Context, message string) {
	c.SetCookie(flashCookie, message, 60, "/", true)
}

// takeFlash 读出并清掉提示
func takeFlash(c *http.Context) string {
	message, err := c.GetCookie(flashCookie)
	if err != nil || message == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", true)
	return message
}

// Frame 推给长连接的消息
type Frame struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	State   engine.Snapshot `json:"state,omitempty"`
	HTML    template.HTML   `json:"html,omitempty"`
	Message string          `json:"message,omitempty"`
}

const (
	frameSnapshot = "snapshot"
	frameNotice   = "notice"
)

func noticeFrame(err error) Frame {
	return Frame{Type: frameNotice, Message: noticeMessage(err)}
}
