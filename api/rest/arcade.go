package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/LeeIsaac1201/gaole/game/arcade"
	mw "github.com/LeeIsaac1201/gaole/middleware"
	"github.com/gin-gonic/gin"
)

// ArcadeHandler exposes the three play modes. The request body is a
// scripted input answering every prompt the mode may ask.
type ArcadeHandler struct {
	hall *arcade.Hall
}

// NewArcadeHandler creates an ArcadeHandler.
func NewArcadeHandler(hall *arcade.Hall) *ArcadeHandler {
	return &ArcadeHandler{hall: hall}
}

// originContext tags the request context for the audit trail.
func originContext(c *gin.Context) context.Context {
	return arcade.WithOrigin(c.Request.Context(), arcade.Origin{
		TraceID: mw.GetTraceID(c),
		IP:      c.ClientIP(),
	})
}

// bindScript reads the optional script body. An empty body means every
// prompt takes its default.
func bindScript(c *gin.Context) (*arcade.Script, bool) {
	s := &arcade.Script{}
	if err := c.ShouldBindJSON(s); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}

func (h *ArcadeHandler) center(c *gin.Context) (*arcade.Center, bool) {
	center, err := h.hall.Enter(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return center, true
}

// Session handles GET /api/arcade/session.
func (h *ArcadeHandler) Session(c *gin.Context) {
	center, ok := h.center(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, center.Status())
}

// Battle handles POST /api/arcade/battle (Get by Battle).
func (h *ArcadeHandler) Battle(c *gin.Context) {
	script, ok := bindScript(c)
	if !ok {
		return
	}
	center, ok := h.center(c)
	if !ok {
		return
	}
	rep, err := center.GetByBattle(originContext(c), script)
	respond(c, rep, err)
}

// Catch handles POST /api/arcade/catch (Get Now).
func (h *ArcadeHandler) Catch(c *gin.Context) {
	script, ok := bindScript(c)
	if !ok {
		return
	}
	center, ok := h.center(c)
	if !ok {
		return
	}
	rep, err := center.GetNow(originContext(c), script)
	respond(c, rep, err)
}

// Trainer handles POST /api/arcade/trainer (Trainer and Battle).
func (h *ArcadeHandler) Trainer(c *gin.Context) {
	script, ok := bindScript(c)
	if !ok {
		return
	}
	center, ok := h.center(c)
	if !ok {
		return
	}
	rep, err := center.TrainerBattle(originContext(c), script)
	respond(c, rep, err)
}

// Leave handles POST /api/arcade/leave. The session ends without refund.
func (h *ArcadeHandler) Leave(c *gin.Context) {
	st, _ := h.hall.Leave(originContext(c), mw.GetAccountID(c))
	c.JSON(http.StatusOK, gin.H{"session": st})
}

// respond writes a mode report. Errors after play has started still
// carry the partial report.
func respond(c *gin.Context, report interface{}, err error) {
	if err != nil {
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
			msg = "internal error"
		}
		c.JSON(status, gin.H{"error": msg, "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}
