package arcade

import (
	"context"
	"sync"
	"time"

	"github.com/LeeIsaac1201/gaole/game/player"
	"github.com/LeeIsaac1201/gaole/game/session"
	"github.com/LeeIsaac1201/gaole/resource"
	"go.uber.org/zap"
)

// Loader fetches a trainer profile for an account.
type Loader interface {
	LoadByAccount(ctx context.Context, accountID int64) (*player.Trainer, error)
}

// Hall maintains the registry of open centres, one per account. The
// centre's trainer is the live copy of the profile while it is open.
type Hall struct {
	mu      sync.RWMutex
	centers map[int64]*Center // accountID → centre
	loader  Loader
	catalog *resource.Catalog
	cfg     Config
	logger  *zap.Logger
}

// NewHall creates an empty Hall. Each centre gets its own generator; a
// non-zero cfg.Seed is offset by the trainer id and cfg.RNG is ignored.
func NewHall(loader Loader, cat *resource.Catalog, cfg Config) *Hall {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Hall{
		centers: make(map[int64]*Center),
		loader:  loader,
		catalog: cat,
		cfg:     cfg,
		logger:  cfg.Logger,
	}
}

// Enter returns the open centre for accountID, loading the trainer and
// opening a centre if there is none.
func (h *Hall) Enter(ctx context.Context, accountID int64) (*Center, error) {
	h.mu.RLock()
	c, ok := h.centers[accountID]
	h.mu.RUnlock()
	if ok {
		return c, nil
	}

	t, err := h.loader.LoadByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.centers[accountID]; ok {
		return c, nil
	}
	c = h.open(t)
	h.centers[accountID] = c
	h.logger.Info("centre opened",
		zap.Int64("account_id", accountID),
		zap.Int64("trainer_id", t.ID))
	return c, nil
}

// Admit registers a centre for a trainer that is already in memory,
// replacing any previous centre for the same account.
func (h *Hall) Admit(t *player.Trainer) *Center {
	c := h.open(t)
	h.mu.Lock()
	old, ok := h.centers[t.AccountID]
	h.centers[t.AccountID] = c
	h.mu.Unlock()

	if ok {
		old.Leave(context.Background())
		h.logger.Info("centre displaced", zap.Int64("account_id", t.AccountID))
	}
	return c
}

func (h *Hall) open(t *player.Trainer) *Center {
	cfg := h.cfg
	if cfg.Seed != 0 {
		cfg.Seed += t.ID
	}
	cfg.RNG = nil
	return NewCenter(t, h.catalog, cfg)
}

// Get returns the open centre for accountID, or nil.
func (h *Hall) Get(accountID int64) *Center {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.centers[accountID]
}

// Leave ends the account's session without refund and closes its centre.
func (h *Hall) Leave(ctx context.Context, accountID int64) (session.State, bool) {
	h.mu.Lock()
	c, ok := h.centers[accountID]
	delete(h.centers, accountID)
	h.mu.Unlock()
	if !ok {
		return session.State{}, false
	}
	return c.Leave(ctx), true
}

// Count returns the number of open centres.
func (h *Hall) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.centers)
}

// Sweep closes centres idle for longer than idle and returns how many
// were closed. Busy centres are skipped. Their sessions end without refund.
func (h *Hall) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	h.mu.Lock()
	var stale []*Center
	for id, c := range h.centers {
		if !c.Busy() && c.LastUsed().Before(cutoff) {
			stale = append(stale, c)
			delete(h.centers, id)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		c.Leave(ctx)
		c.mu.Lock()
		c.save(ctx)
		c.mu.Unlock()
	}
	if len(stale) > 0 {
		h.logger.Info("idle centres closed", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// CloseAll saves and closes every centre. Used on shutdown.
func (h *Hall) CloseAll(ctx context.Context) {
	h.mu.Lock()
	centers := make([]*Center, 0, len(h.centers))
	for _, c := range h.centers {
		centers = append(centers, c)
	}
	h.centers = make(map[int64]*Center)
	h.mu.Unlock()

	h.logger.Info("closing all centres", zap.Int("count", len(centers)))
	for _, c := range centers {
		c.mu.Lock()
		c.save(ctx)
		c.mu.Unlock()
	}
}
