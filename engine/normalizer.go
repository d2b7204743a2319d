package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	msgUnreachable = "Game engine unreachable"
	msgMalformed   = "Invalid response from game engine"
	msgMissingID   = "Game engine did not return a game id"

	fieldError  = "error"
	fieldGameID = "game_id"
)

// Snapshot 引擎返回的完整游戏状态，网关不解释其中的字段
type Snapshot map[string]any

// Normalize 把一次传输结果归类为快照或 *Error。
// 解析失败一律是 malformed，与状态码无关；只有 200 算成功
func Normalize(status int, raw []byte, sendErr error) (Snapshot, error) {
	if sendErr != nil {
		return nil, &Error{Kind: KindTransport, Message: msgUnreachable, Status: status, Err: sendErr}
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &Error{Kind: KindMalformed, Message: msgMalformed, Status: status, Err: err}
	}

	if status != http.StatusOK {
		message := fmt.Sprintf("Game engine returned %d", status)
		if obj, ok := data.(map[string]any); ok {
			if text, ok := obj[fieldError].(string); ok && text != "" {
				message = text
			}
		}
		return nil, &Error{Kind: KindProtocol, Message: message, Status: status}
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, &Error{
			Kind:    KindMalformed,
			Message: msgMalformed,
			Status:  status,
			Err:     fmt.Errorf("snapshot is %T, want object", data),
		}
	}
	return Snapshot(obj), nil
}

// SessionID 取出 start 接口保证返回的 game_id，数字 id 按原样转成字符串
func SessionID(snapshot Snapshot) (string, error) {
	var id string
	switch v := snapshot[fieldGameID].(type) {
	case string:
		id = v
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if id == "" {
		return "", &Error{
			Kind:    KindMalformed,
			Message: msgMissingID,
			Status:  http.StatusOK,
			Err:     fmt.Errorf("%s is %T", fieldGameID, snapshot[fieldGameID]),
		}
	}
	return id, nil
}
