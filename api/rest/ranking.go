package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/LeeIsaac1201/gaole/cache"
	"github.com/LeeIsaac1201/gaole/model"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rankingZKey = "ranking:wins"
const rankingTop = 100

// RankingHandler serves the battle-wins leaderboard from a cache sorted
// set, falling back to the database when the set is empty.
type RankingHandler struct {
	store  *store.TrainerStore
	cache  cache.Cache
	size   int
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler keeping the top size
// trainers in the sorted set.
func NewRankingHandler(s *store.TrainerStore, c cache.Cache, size int, logger *zap.Logger) *RankingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 || size > rankingTop {
		size = rankingTop
	}
	return &RankingHandler{store: s, cache: c, size: size, logger: logger}
}

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank        int    `json:"rank"`
	TrainerID   int64  `json:"trainer_id"`
	TrainerName string `json:"trainer_name"`
	Won         int    `json:"battles_won"`
	Lost        int    `json:"battles_lost"`
}

// TopWins returns trainers sorted by battles won.
// GET /api/ranking/wins?limit=20
func (h *RankingHandler) TopWins(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}
	ctx := c.Request.Context()

	members, err := h.cache.ZRevRange(ctx, rankingZKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, rankingZKey, m)
			entries = append(entries, RankEntry{
				Rank:      len(entries) + 1,
				TrainerID: id,
				Won:       int(score),
			})
		}
		h.enrich(ctx, entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries, "source": "cache"})
		return
	}

	// Cold set: warm it with the full board, then serve the requested slice.
	trainers, err := h.store.TopWinners(ctx, h.size)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.fill(ctx, trainers); err != nil {
		h.logger.Warn("ranking warm failed", zap.Error(err))
	}
	if len(trainers) > limit {
		trainers = trainers[:limit]
	}
	entries := make([]RankEntry, len(trainers))
	for i, t := range trainers {
		entries[i] = entryFor(i+1, t)
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries, "source": "db"})
}

// Refresh rebuilds the sorted set from the database. The scheduler runs
// it periodically.
func (h *RankingHandler) Refresh(ctx context.Context) (int, error) {
	trainers, err := h.store.TopWinners(ctx, h.size)
	if err != nil {
		return 0, err
	}
	if err := h.fill(ctx, trainers); err != nil {
		return 0, err
	}
	h.logger.Debug("ranking refreshed", zap.Int("trainers", len(trainers)))
	return len(trainers), nil
}

// fill replaces the sorted set with trainers.
func (h *RankingHandler) fill(ctx context.Context, trainers []model.Trainer) error {
	if err := h.cache.Del(ctx, rankingZKey); err != nil && !cache.IsNotFound(err) {
		return err
	}
	for _, t := range trainers {
		if err := h.cache.ZAdd(ctx, rankingZKey, float64(t.BattlesWon), strconv.FormatInt(t.ID, 10)); err != nil {
			return err
		}
	}
	return nil
}

// RefreshNow handles POST /api/ranking/refresh.
func (h *RankingHandler) RefreshNow(c *gin.Context) {
	n, err := h.Refresh(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// enrich fills names and records for entries read from the cache. The
// cached score is kept as-is since the set may lag the database.
func (h *RankingHandler) enrich(ctx context.Context, entries []RankEntry) {
	for i := range entries {
		t, err := h.store.Load(ctx, entries[i].TrainerID)
		if err != nil {
			continue
		}
		_, lost := t.Record()
		entries[i].TrainerName = t.Name
		entries[i].Lost = lost
	}
}

func entryFor(rank int, t model.Trainer) RankEntry {
	return RankEntry{
		Rank:        rank,
		TrainerID:   t.ID,
		TrainerName: t.Name,
		Won:         t.BattlesWon,
		Lost:        t.BattlesLost,
	}
}
