package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/LeeIsaac1201/gaole/cache"
	"github.com/LeeIsaac1201/gaole/config"
	"github.com/LeeIsaac1201/gaole/game/arcade"
	mw "github.com/LeeIsaac1201/gaole/middleware"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errBusy = errors.New("a mode is already being played")

// Handler is the Gin handler for GET /ws, the interactive arcade
// console. Modes started over the console ask the player for every
// choice instead of taking a pre-recorded script.
type Handler struct {
	hall          *arcade.Hall
	cache         cache.Cache
	sec           config.SecurityConfig
	promptTimeout time.Duration
	router        *Router
	logger        *zap.Logger
	upgrader      websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(hall *arcade.Hall, c cache.Cache, sec config.SecurityConfig, promptTimeout time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if promptTimeout <= 0 {
		promptTimeout = time.Minute
	}
	h := &Handler{
		hall:          hall,
		cache:         c,
		sec:           sec,
		promptTimeout: promptTimeout,
		router:        NewRouter(logger),
		logger:        logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}

	h.router.On("ping", h.handlePing)
	h.router.On("status", h.handleStatus)
	h.router.On("play", h.handlePlay)
	h.router.On("leave", h.handleLeave)
	h.router.On("reply", h.handleReply)
	return h
}

// ServeWS handles GET /ws?token=<jwt>.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	owner, err := h.cache.Get(ctx, mw.SessionKey(tokenStr))
	if err != nil || owner != strconv.FormatInt(claims.AccountID, 10) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	// Only trainers may enter the arcade.
	if _, err := h.hall.Enter(ctx, claims.AccountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "create a trainer first"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}
	conn := newConn(claims.AccountID, ws, h.logger)
	conn.IP = c.ClientIP()
	h.logger.Info("console connected", zap.Int64("account_id", conn.AccountID))

	_ = h.handleStatus(context.Background(), conn, nil)
	h.readPump(conn)
}

// readPump reads messages from the WebSocket connection and dispatches
// them until the connection closes.
func (h *Handler) readPump(c *Conn) {
	defer func() {
		c.Close()
		h.logger.Info("console disconnected", zap.Int64("account_id", c.AccountID))
	}()

	c.setReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.setReadDeadline()
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.Int64("account_id", c.AccountID),
					zap.Error(err))
			}
			return
		}
		c.setReadDeadline()
		h.router.Dispatch(c, raw)
	}
}

func (h *Handler) handlePing(_ context.Context, c *Conn, payload json.RawMessage) error {
	var req struct {
		ClientTS int64 `json:"client_ts"`
	}
	_ = json.Unmarshal(payload, &req)
	c.Send("pong", map[string]int64{
		"client_ts": req.ClientTS,
		"server_ts": time.Now().UnixMilli(),
	})
	return nil
}

func (h *Handler) handleStatus(ctx context.Context, c *Conn, _ json.RawMessage) error {
	center, err := h.hall.Enter(ctx, c.AccountID)
	if err != nil {
		return err
	}
	c.Send("status", center.Status())
	return nil
}

func (h *Handler) handleLeave(ctx context.Context, c *Conn, _ json.RawMessage) error {
	if c.busy.Load() {
		return errBusy
	}
	st, _ := h.hall.Leave(h.origin(ctx, c), c.AccountID)
	c.Send("left", map[string]interface{}{"session": st})
	return nil
}

func (h *Handler) handleReply(_ context.Context, c *Conn, payload json.RawMessage) error {
	if !c.deliver(payload) {
		return errors.New("no prompt is waiting for a reply")
	}
	return nil
}

type playRequest struct {
	Mode string `json:"mode"` // battle | catch | trainer
}

type reportPayload struct {
	Mode   string      `json:"mode"`
	Report interface{} `json:"report"`
	Error  string      `json:"error,omitempty"`
}

// handlePlay starts a mode in its own goroutine so the read pump stays
// free to receive replies. One mode runs at a time per connection.
func (h *Handler) handlePlay(ctx context.Context, c *Conn, payload json.RawMessage) error {
	var req playRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("bad play request: %w", err)
	}
	switch req.Mode {
	case "battle", "catch", "trainer":
	default:
		return fmt.Errorf("unknown mode %q", req.Mode)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return errBusy
	}

	ctx = h.origin(ctx, c)
	go func() {
		defer c.busy.Store(false)
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("panic in console play",
					zap.Int64("account_id", c.AccountID),
					zap.Any("recover", r),
					zap.String("stack", string(debug.Stack())))
				c.Send("error", errorPayload{Type: "play", Error: "internal error"})
			}
		}()
		c.Send("report", h.play(ctx, c, req.Mode))
	}()
	return nil
}

func (h *Handler) play(ctx context.Context, c *Conn, mode string) reportPayload {
	out := reportPayload{Mode: mode}
	center, err := h.hall.Enter(ctx, c.AccountID)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	in := &remoteInput{conn: c, timeout: h.promptTimeout}
	switch mode {
	case "battle":
		out.Report, err = center.GetByBattle(ctx, in)
	case "catch":
		out.Report, err = center.GetNow(ctx, in)
	case "trainer":
		out.Report, err = center.TrainerBattle(ctx, in)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// origin tags ctx for the audit trail. It is detached from the
// connection so saves finish even if the player disconnects.
func (h *Handler) origin(ctx context.Context, c *Conn) context.Context {
	return arcade.WithOrigin(context.WithoutCancel(ctx), arcade.Origin{
		TraceID: TraceIDFromCtx(ctx),
		IP:      c.IP,
	})
}
