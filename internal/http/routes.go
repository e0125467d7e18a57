package http

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	// one submission every 3 seconds per IP
	submitRPS       = 1.0 / 3.0
	submitBurst     = 1
	limiterIdle     = 10 * time.Minute
	limiterSweepGap = 10 * time.Minute
)

type Options struct {
	AdminToken string
	CorsOrigin string
}

// SetupRoutes configures all application routes and middleware. The limiter
// sweeper stops with ctx.
func SetupRoutes(ctx context.Context, router *gin.Engine, env *Env, opts Options) {
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := opts.CorsOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: corsOrigin != "*",
	}))

	limiter := NewIPRateLimiter(rate.Limit(submitRPS), submitBurst)
	go func() {
		t := time.NewTicker(limiterSweepGap)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Sweep(limiterIdle)
			}
		}
	}()
	limited := RateLimitMiddleware(limiter)

	api := router.Group("/api")
	{
		api.GET("/confessions", env.ListPosts)
		api.POST("/confessions", limited, env.CreatePost)
		api.POST("/confessions/by-ids", env.PostsByIDs)
		api.GET("/confessions/random", env.RandomPosts)
		api.GET("/confessions/quote-of-day", env.QuoteOfDay)
		api.GET("/confessions/:id", env.GetPost)
		api.POST("/confessions/:id/react", env.React)
		api.POST("/confessions/:id/report", limited, env.ReportPost)
		api.GET("/confessions/:id/replies", env.ListReplies)
		api.POST("/confessions/:id/replies", limited, env.CreateReply)
		api.POST("/replies/:id/like", env.LikeReply)
		api.GET("/truth-or-fake/next", env.NextTruthOrFake)
		api.POST("/truth-or-fake/vote", env.VoteTruthOrFake)
		api.GET("/prompts/today", env.TodayPrompt)
	}

	admin := router.Group("/api/admin", AdminAuthMiddleware(opts.AdminToken))
	{
		admin.GET("/confessions", env.AdminListPosts)
		admin.PATCH("/confessions", env.AdminUpdatePost)
		admin.GET("/reports", env.AdminListReports)
		admin.PATCH("/reports", env.AdminUpdateReport)
	}

	router.GET("/ws", env.ServeWs)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", env.Healthz)
}
