package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/courier/internal/app"
	"github.com/dkeye/courier/internal/config"
	"github.com/dkeye/courier/internal/core"
	"github.com/dkeye/courier/internal/domain"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTransport is an indirection over *websocket.Conn to ease testing.
type wsTransport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// wsConn adapts a gorilla websocket to core.Conn. Sends are non-blocking: a
// full buffer means the client is stale and the frame is dropped for it.
// TrySend and Close race by design — fan-out snapshots connections under a
// short lock and sends outside it while the read pump may be tearing the
// connection down — so both go through the mutex and a closed flag; a send
// after Close reports ErrConnClosed instead of hitting a closed channel.
type wsConn struct {
	conn wsTransport

	mu     sync.Mutex
	send   chan core.Frame
	closed bool
}

func newWSConn(conn wsTransport) *wsConn {
	return &wsConn{conn: conn, send: make(chan core.Frame, 256)}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
}

type WSController struct {
	Coordinator *app.Coordinator
	Cfg         *config.Config
}

func NewWSController(coordinator *app.Coordinator, cfg *config.Config) *WSController {
	return &WSController{Coordinator: coordinator, Cfg: cfg}
}

// Handle authenticates the credential, upgrades the connection and starts the
// per-connection pumps. One goroutine reads inbound events, one writes; all
// shared state lives behind the coordinator.
func (ctl *WSController) Handle(ctx context.Context, c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		credential = c.GetHeader("Authorization")
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("upgrade failed")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := newWSConn(ws)
	sess, err := ctl.Coordinator.Connect(credential, conn)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("auth failed")
		// No pumps running yet; write the refusal directly and close.
		_ = ws.WriteMessage(websocket.TextMessage, mustJSON(errorFrame{Type: "error", Error: "unauthorized"}))
		_ = ws.Close()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}

func (ctl *WSController) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Str("module", "adapters.ws").Err(err).Msg("write failed")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, cancel context.CancelFunc, sess *app.Session, c *wsConn) {
	defer func() {
		ctl.Coordinator.Disconnect(sess)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Str("module", "adapters.ws").Str("user", string(sess.User)).Err(err).Msg("read loop closing")
				return
			}
			ctl.handleFrame(ctx, sess, c, data)
		}
	}
}

func (ctl *WSController) handleFrame(ctx context.Context, sess *app.Session, c *wsConn, data []byte) {
	f, err := parseFrame(data)
	if err != nil {
		ctl.reply(c, errorFrame{Type: "error", Error: "bad_frame"})
		return
	}

	switch f.Type {
	case "send":
		ref, err := ctl.Coordinator.SendMessage(ctx, sess, domain.Intent{
			Group:         domain.GroupID(f.Group),
			Recipient:     domain.UserID(f.To),
			Body:          f.Body,
			AttachmentRef: f.Attachment,
			Kind:          domain.MessageKind(f.Kind),
		})
		if err != nil {
			ctl.reply(c, errorFrame{Type: "error", Error: errorCode(err)})
			return
		}
		ctl.reply(c, ackFrame{Type: "ack", Ref: string(ref)})
	case "mark_read":
		count, err := ctl.Coordinator.MarkRead(ctx, sess, domain.ReadScope{
			Group:  domain.GroupID(f.Group),
			Sender: domain.UserID(f.From),
		})
		if err != nil {
			ctl.reply(c, errorFrame{Type: "error", Error: errorCode(err)})
			return
		}
		ctl.reply(c, ackFrame{Type: "ack", Count: &count})
	case "call_invite":
		ctl.relayResult(c, ctl.Coordinator.InitiateCall(sess, domain.UserID(f.To), f.Payload))
	case "call_accept":
		ctl.relayResult(c, ctl.Coordinator.AcceptCall(sess, domain.UserID(f.To), f.Payload))
	case "call_end":
		ctl.relayResult(c, ctl.Coordinator.EndCall(sess, domain.UserID(f.To)))
	case "ping":
		ctl.reply(c, ackFrame{Type: "ack"})
	}
}

func (ctl *WSController) relayResult(c *wsConn, err error) {
	if err != nil {
		ctl.reply(c, errorFrame{Type: "error", Error: errorCode(err)})
		return
	}
	ctl.reply(c, ackFrame{Type: "ack"})
}

func (ctl *WSController) reply(c *wsConn, v any) {
	_ = c.TrySend(mustJSON(v))
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("marshal reply")
		return []byte(`{"type":"error","error":"internal"}`)
	}
	return b
}
