package rest

import (
	"context"
	"net/http"

	"github.com/LeeIsaac1201/gaole/audit"
	"github.com/LeeIsaac1201/gaole/cache"
	"github.com/LeeIsaac1201/gaole/config"
	"github.com/LeeIsaac1201/gaole/game/arcade"
	mw "github.com/LeeIsaac1201/gaole/middleware"
	"github.com/LeeIsaac1201/gaole/resource"
	"github.com/LeeIsaac1201/gaole/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps is everything the HTTP API needs.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Cache   cache.Cache
	Store   *store.TrainerStore
	Hall    *arcade.Hall
	Catalog *resource.Catalog
	Audit   *audit.Service
	Logger  *zap.Logger
}

// NewRouter builds the gin engine with all routes registered. ctx bounds
// background work started by middleware. The returned RankingHandler is
// shared with the scheduler's refresh job.
func NewRouter(ctx context.Context, d Deps) (*gin.Engine, *RankingHandler) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	cfg := d.Config

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"species":  d.Catalog.Len(),
			"visitors": d.Hall.Count(),
		})
	})

	authH := NewAuthHandler(d.DB, d.Cache, cfg.Security)
	trainerH := NewTrainerHandler(d.Store, d.Hall, d.Catalog, d.Audit, cfg.Arcade.StarterYen)
	arcadeH := NewArcadeHandler(d.Hall)
	rankH := NewRankingHandler(d.Store, d.Cache, cfg.Jobs.RankingSize, d.Logger)
	auth := mw.Auth(cfg.Security, d.Cache)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)
		authG.POST("/refresh", auth, authH.Refresh)

		trainersG := api.Group("/trainers")
		trainersG.Use(auth)
		trainersG.POST("", trainerH.Create)
		trainersG.GET("/me", trainerH.Me)
		trainersG.POST("/me/deposit", trainerH.Deposit)
		trainersG.POST("/me/active", trainerH.SetActive)
		trainersG.GET("/me/history", trainerH.History)

		arcadeG := api.Group("/arcade")
		arcadeG.Use(auth)
		arcadeG.GET("/session", arcadeH.Session)
		arcadeG.POST("/battle", arcadeH.Battle)
		arcadeG.POST("/catch", arcadeH.Catch)
		arcadeG.POST("/trainer", arcadeH.Trainer)
		arcadeG.POST("/leave", arcadeH.Leave)

		api.GET("/species", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"species": d.Catalog.All()})
		})

		rankG := api.Group("/ranking")
		rankG.GET("/wins", rankH.TopWins)
		rankG.POST("/refresh", auth, rankH.RefreshNow)
	}
	return r, rankH
}
