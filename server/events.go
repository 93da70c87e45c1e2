package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"Melodix/logger"

	"github.com/gorilla/websocket"
)

const (
	// WebSocket 配置
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // 必须小于 pongWait
	maxMessageSize = 1024
	sendBuffer     = 16
)

// EventType 推送事件类型
type EventType string

const (
	EventHello            EventType = "hello"
	EventLibraryReindexed EventType = "library_reindexed"
)

// Event 推送给 /ws/events 订阅者的消息
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ReindexData library_reindexed 事件数据
type ReindexData struct {
	Available bool  `json:"available"`
	Version   int64 `json:"version"`
	Artists   int   `json:"artists"`
	Albums    int   `json:"albums"`
	Songs     int   `json:"songs"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans server events out to every connected websocket. A single
// goroutine (Run) owns the client set.
type EventHub struct {
	clients    map[*eventClient]bool
	register   chan *eventClient
	unregister chan *eventClient
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once

	count    chan chan int
	upgrader websocket.Upgrader
}

// NewEventHub 创建事件 Hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*eventClient]bool),
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		count:      make(chan chan int),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run 启动 Hub 主循环
func (h *EventHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			logger.Debug("[Events] 客户端已连接", logger.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// 发送缓冲区满，断开慢客户端
					h.remove(c)
				}
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case <-h.done:
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

func (h *EventHub) remove(c *eventClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	logger.Debug("[Events] 客户端已断开", logger.Int("clients", len(h.clients)))
}

// Stop 停止 Hub 并关闭所有连接
func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount 当前连接数
func (h *EventHub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Publish encodes ev and queues it for every connected client.
func (h *EventHub) Publish(ev Event) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
	return nil
}

// ServeWS upgrades the request and streams events until the peer goes away.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[Events] WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	c := &eventClient{conn: conn, send: make(chan []byte, sendBuffer)}

	hello, _ := json.Marshal(Event{Type: EventHello, Timestamp: time.Now().UnixMilli()})
	c.send <- hello

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump 只用于处理 pong 和检测断开，客户端发来的内容被丢弃
func (h *EventHub) readPump(c *eventClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("[Events] WebSocket 异常关闭", logger.ErrorField(err))
			}
			return
		}
	}
}

func (h *EventHub) writePump(c *eventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
