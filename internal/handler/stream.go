package handler

import (
	"log"
	"net/http"
	"time"

	"ffarena/internal/event"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Events 变更推送
// GET /api/v1/events (websocket)
//
// 每条消息是一个 event.Event，客户端按 kind 只重新拉取对应的数据。
// 普通用户只收到自己的账户和交易变更，管理员收到全部。
// 客户端消费过慢时丢弃事件，不阻塞发布方。
func (h *Handler) Events(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Stream] websocket 升级失败: %v", err)
		return
	}
	userID := currentAccount(c).ID
	admin := capabilityOf(c).Admin

	events := make(chan event.Event, streamBuffer)
	unsubscribe := h.bus.SubscribeAll(func(e event.Event) {
		if !admin {
			var ok bool
			if e, ok = e.ScopedTo(userID); !ok {
				return
			}
		}
		select {
		case events <- e:
		default:
			log.Printf("[Stream] 推送队列已满，丢弃事件: userID=%s, kind=%s", userID, e.Kind)
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go readPump(conn, done)
	writePump(conn, events, done)
}

// readPump 只处理 pong 与关闭帧
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, events <-chan event.Event, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case e := <-events:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
