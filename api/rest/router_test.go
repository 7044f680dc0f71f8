package rest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/LeeIsaac1201/gaole/api/rest"
	"github.com/LeeIsaac1201/gaole/audit"
	"github.com/LeeIsaac1201/gaole/cache"
	"github.com/LeeIsaac1201/gaole/config"
	"github.com/LeeIsaac1201/gaole/game/arcade"
	"github.com/LeeIsaac1201/gaole/game/battle"
	"github.com/LeeIsaac1201/gaole/game/element"
	"github.com/LeeIsaac1201/gaole/resource"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/LeeIsaac1201/gaole/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testAPI struct {
	r     *gin.Engine
	db    *gorm.DB
	cache cache.Cache
	store *store.TrainerStore
	hall  *arcade.Hall
	audit *audit.Service
	rank  *rest.RankingHandler
}

// wildSpecies is the whole catalog: two feeble creatures any champion
// beats in one hit.
var wildSpecies = []resource.Species{
	{ID: 129, Name: "Magikarp", Types: []string{"Water"}, MaxHP: 10, Attack: 1, Defense: 0},
	{ID: 10, Name: "Caterpie", Types: []string{"Bug"}, MaxHP: 10, Attack: 1, Defense: 0},
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	cfg := config.Default()
	cfg.Security = testSec
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 1000
	cfg.Arcade.StarterYen = 0

	st := store.NewTrainerStore(db, logger)
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	cat := resource.NewCatalog(wildSpecies, logger)

	acfg := arcade.FromConfig(cfg.Arcade)
	acfg.Seed = 7
	acfg.Saver = st
	acfg.Audit = auditSvc
	hall := arcade.NewHall(st, cat, acfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r, rank := rest.NewRouter(ctx, rest.Deps{
		Config:  cfg,
		DB:      db,
		Cache:   c,
		Store:   st,
		Hall:    hall,
		Catalog: cat,
		Audit:   auditSvc,
		Logger:  logger,
	})
	return &testAPI{r: r, db: db, cache: c, store: st, hall: hall, audit: auditSvc, rank: rank}
}

func champion() *battle.Combatant {
	return battle.NewCombatant(battle.CombatantConfig{
		SpeciesID: 149, Name: "Dragonite",
		Types:  []element.Element{element.Dragon},
		MaxHP:  5000,
		Attack: 1000, Defense: 1000,
		Moves: []battle.Move{battle.Tackle()},
	})
}

// withTrainer logs username in and gives the account a trainer owning
// a champion. It returns the bearer token and the trainer id.
func (a *testAPI) withTrainer(t *testing.T, username string, yen int64) (string, int64) {
	t.Helper()
	w := postJSON(a.r, "/api/auth/login", map[string]string{"username": username, "password": "pass1234"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	accountID := int64(resp["account_id"].(float64))

	tr, err := a.store.Create(context.Background(), accountID, username, yen, champion())
	require.NoError(t, err)
	return resp["token"].(string), tr.ID
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := getJSON(a.r, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(len(wildSpecies)), resp["species"])
}

func TestSpeciesList(t *testing.T) {
	a := newAPI(t)
	w := getJSON(a.r, "/api/species", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["species"], len(wildSpecies))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/api/trainers/me", "/api/arcade/session", "/api/trainers/me/history"} {
		w := getJSON(a.r, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := postJSON(a.r, "/api/arcade/battle", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
