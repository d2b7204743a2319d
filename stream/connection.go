package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spellgate/common/log"
)

var (
	pongWait             = 10 * time.Second
	writeWait            = 10 * time.Second
	pingInterval         = (pongWait * 9) / 10
	maxMessageSize int64 = 4096
	writeQueueSize       = 16
	inboxSize            = 8
)

// Connection 一个浏览器的长连接。写操作都在 writeMessage goroutine 里完成，
// Send 不阻塞，可以在持锁的回调里调用。
// 收到的消息交给单独的 goroutine 按顺序处理，读循环一直在跑，慢动作不会耽误 pong
type Connection struct {
	ConnID       string
	Conn         *websocket.Conn
	writeChan    chan []byte
	inbox        chan []byte
	closeChan    chan struct{}
	closeOnce    sync.Once
	pongWait     time.Duration
	pingInterval time.Duration
}

func NewConnection(conn *websocket.Conn, connID string) *Connection {
	return &Connection{
		ConnID:       connID,
		Conn:         conn,
		writeChan:    make(chan []byte, writeQueueSize),
		inbox:        make(chan []byte, inboxSize),
		closeChan:    make(chan struct{}),
		pongWait:     pongWait,
		pingInterval: pingInterval,
	}
}

// Run 启动写 goroutine 和消息处理 goroutine，在当前 goroutine 读消息直到连接断开。
// onBusy 在处理队列满时收到被丢掉的消息，可以为 nil。
// 返回前连接已经关闭，正在处理的消息也已经处理完
func (con *Connection) Run(onMessage func([]byte), onBusy func([]byte)) {
	go con.writeMessage()
	handled := make(chan struct{})
	go func() {
		defer close(handled)
		for message := range con.inbox {
			onMessage(message)
		}
	}()

	con.readMessage(onBusy)
	con.Close()
	close(con.inbox)
	<-handled
}

func (con *Connection) writeMessage() {
	pingTicker := time.NewTicker(con.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case message := <-con.writeChan:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error("客户端[%s] SetWriteDeadline err:%v", con.ConnID, err)
			}
			if err := con.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("客户端[%s] write err:%v", con.ConnID, err)
				con.Close()
				_ = con.Conn.Close()
				return
			}
		case <-pingTicker.C:
			if err := con.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error("客户端[%s] ping SetWriteDeadline err:%v", con.ConnID, err)
			}
			if err := con.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("客户端[%s] ping err:%v", con.ConnID, err)
				con.Close()
				_ = con.Conn.Close()
				return
			}
		case <-con.closeChan:
			_ = con.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = con.Conn.Close()
			return
		}
	}
}

func (con *Connection) readMessage(onBusy func([]byte)) {
	con.Conn.SetReadLimit(maxMessageSize)
	if err := con.Conn.SetReadDeadline(time.Now().Add(con.pongWait)); err != nil {
		log.Error("客户端[%s] SetReadDeadline err:%v", con.ConnID, err)
		return
	}
	con.Conn.SetPongHandler(func(string) error {
		return con.Conn.SetReadDeadline(time.Now().Add(con.pongWait))
	})

	for {
		messageType, message, err := con.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("客户端[%s] 异常断开: %v", con.ConnID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			log.Warn("客户端[%s] 不支持的消息类型: %d", con.ConnID, messageType)
			continue
		}
		// 有消息也说明客户端还活着
		_ = con.Conn.SetReadDeadline(time.Now().Add(con.pongWait))
		select {
		case con.inbox <- message:
		default:
			log.Warn("客户端[%s] 处理队列已满，丢弃一条消息", con.ConnID)
			if onBusy != nil {
				onBusy(message)
			}
		}
	}
}

// Send 序列化后放进写队列。队列满或连接已关闭时丢弃并返回 false
func (con *Connection) Send(frame any) bool {
	buf, err := json.Marshal(frame)
	if err != nil {
		log.Error("客户端[%s] 序列化消息失败: %v", con.ConnID, err)
		return false
	}
	select {
	case <-con.closeChan:
		return false
	default:
	}
	select {
	case con.writeChan <- buf:
		return true
	default:
		log.Warn("客户端[%s] 写队列已满，丢弃一帧", con.ConnID)
		return false
	}
}

// Closed 连接关闭时关闭
func (con *Connection) Closed() <-chan struct{} {
	return con.closeChan
}

func (con *Connection) Close() {
	con.closeOnce.Do(func() {
		close(con.closeChan)
		log.Debug("客户端[%s] 连接关闭", con.ConnID)
	})
}
