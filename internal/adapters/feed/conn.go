package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/domain"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WsConn is a Subscriber over a WebSocket with a bounded send buffer.
type WsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func NewWsConn(conn *websocket.Conn, buffer int) *WsConn {
	return &WsConn{conn: conn, send: make(chan []byte, buffer)}
}

func (c *WsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// Options tunes feed connections.
type Options struct {
	Buffer     int
	ReadLimit  int64
	PingPeriod time.Duration
}

// Serve upgrades the request and streams group events until either side
// closes or ctx is done.
func (h *Hub) Serve(ctx context.Context, c *gin.Context, group domain.GroupID, opts Options) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "feed").Msg("ws upgrade")
		return
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 32
	}
	if opts.ReadLimit > 0 {
		ws.SetReadLimit(opts.ReadLimit)
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}

	conn := NewWsConn(ws, opts.Buffer)
	h.Subscribe(group, conn)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		conn.readPump(group)
	}()
	go func() {
		defer func() {
			h.Unsubscribe(group, conn)
			conn.Close()
		}()
		conn.writePump(ctx, opts.PingPeriod)
	}()
}

func (c *WsConn) writePump(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "feed").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "feed").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "feed").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "feed").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "feed").Msg("writePump ping")
				return
			}
		}
	}
}

// readPump only drains control frames; the feed is one-way.
func (c *WsConn) readPump(group domain.GroupID) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			log.Info().Err(err).Str("module", "feed").Int64("group", int64(group)).Msg("readPump closing")
			return
		}
	}
}
