package rest

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/LeeIsaac1201/gaole/audit"
	"github.com/LeeIsaac1201/gaole/game/arcade"
	"github.com/LeeIsaac1201/gaole/game/battle"
	mw "github.com/LeeIsaac1201/gaole/middleware"
	"github.com/LeeIsaac1201/gaole/resource"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/gin-gonic/gin"
)

// TrainerHandler handles trainer profile REST endpoints.
type TrainerHandler struct {
	store      *store.TrainerStore
	hall       *arcade.Hall
	catalog    *resource.Catalog
	audit      *audit.Service
	starterYen int64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewTrainerHandler creates a TrainerHandler. New trainers start with
// starterYen and one creature from the catalog.
func NewTrainerHandler(s *store.TrainerStore, hall *arcade.Hall, cat *resource.Catalog, auditSvc *audit.Service, starterYen int64) *TrainerHandler {
	return &TrainerHandler{
		store:      s,
		hall:       hall,
		catalog:    cat,
		audit:      auditSvc,
		starterYen: starterYen,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type createTrainerRequest struct {
	Name      string `json:"name"       binding:"required,min=1,max=32"`
	StarterID int    `json:"starter_id"`
}

// Create handles POST /api/trainers.
func (h *TrainerHandler) Create(c *gin.Context) {
	accountID := mw.GetAccountID(c)

	var req createTrainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sp, ok := h.catalog.ByID(req.StarterID)
	if !ok {
		if req.StarterID != 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown starter_id"})
			return
		}
		h.rngMu.Lock()
		sp = h.catalog.Random(h.rng)
		h.rngMu.Unlock()
	}
	starter := sp.Combatant()
	battle.EnsureMoves(starter)

	t, err := h.store.Create(c.Request.Context(), accountID, req.Name, h.starterYen, starter)
	if err != nil {
		fail(c, err)
		return
	}
	center := h.hall.Admit(t)
	c.JSON(http.StatusCreated, gin.H{"trainer": center.Status()})
}

// Me handles GET /api/trainers/me.
func (h *TrainerHandler) Me(c *gin.Context) {
	center, err := h.hall.Enter(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trainer": center.Status()})
}

type depositRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Deposit handles POST /api/trainers/me/deposit.
func (h *TrainerHandler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	center, err := h.hall.Enter(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return
	}
	yen, err := center.Deposit(originContext(c), req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"yen": yen})
}

type setActiveRequest struct {
	Slot *int `json:"slot" binding:"required"`
}

// SetActive handles POST /api/trainers/me/active.
func (h *TrainerHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	center, err := h.hall.Enter(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return
	}
	active, err := center.SetActive(originContext(c), *req.Slot)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

// History handles GET /api/trainers/me/history?limit=20.
func (h *TrainerHandler) History(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	center, err := h.hall.Enter(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		fail(c, err)
		return
	}
	logs, err := h.audit.Recent(c.Request.Context(), center.Trainer().ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}
