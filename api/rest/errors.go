package rest

import (
	"errors"
	"net/http"

	"github.com/LeeIsaac1201/gaole/game/arcade"
	"github.com/LeeIsaac1201/gaole/game/player"
	"github.com/LeeIsaac1201/gaole/game/session"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, player.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, player.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrNoCreature), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrExists),
		errors.Is(err, session.ErrNoRounds),
		errors.Is(err, session.ErrInactive),
		errors.Is(err, session.ErrSessionActive),
		errors.Is(err, arcade.ErrNoActiveCreature):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Unmapped errors are hidden behind a
// generic message.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
