package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/smarena/backend/internal/api/handlers"
	"github.com/smarena/backend/internal/arena"
	"github.com/smarena/backend/internal/auth"
	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/middleware"
	"github.com/smarena/backend/internal/rating"
	"github.com/smarena/backend/internal/tournament"
	"github.com/smarena/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client,
	manager *arena.Manager, svc *tournament.Service, ratings *rating.Store, cfg *config.Config) {

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketOriginCheck(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Matchmaking
		match := v1.Group("/match")
		{
			match.POST("/request", handlers.RequestMatch(db, manager, ratings, cfg))
			match.POST("/cancel", handlers.CancelSearch(manager))
			match.GET("/lobby", handlers.Lobby(manager))
			match.POST("/challenge", handlers.Challenge(manager))
			match.POST("/ai", handlers.StartAI(db, manager))
		}

		// Sessions
		session := v1.Group("/session")
		{
			session.GET("/:id", handlers.GetSession(manager))
			session.POST("/:id/move", handlers.Move(manager, rdb, cfg))
			session.POST("/:id/resign", handlers.Resign(manager))
			session.GET("/:id/ws", ws.HandleSessionStream(manager, rdb))
		}

		// Tournaments
		tourn := v1.Group("/tournament")
		{
			tourn.GET("/active", handlers.ActiveTournament(svc))
			tourn.GET("/:id", handlers.GetTournament(svc))
			tourn.POST("/:id/join", handlers.JoinTournament(db, svc))
			tourn.POST("/:id/leave", handlers.LeaveTournament(svc))
			tourn.GET("/:id/bracket", handlers.TournamentBracket(svc))
		}

		// Leaderboards
		v1.GET("/leaderboard/points", handlers.PointsLeaderboard(svc))
		v1.GET("/leaderboard/ratings", handlers.RatingLeaderboard(ratings))

		// Player surface
		player := v1.Group("/player")
		{
			player.GET("/:user_id", handlers.GetProfile(db))
			player.GET("/:user_id/session", handlers.GetUserSession(manager))
			player.POST("/:user_id/ticket", handlers.BuyTicket(db, cfg))
			player.POST("/:user_id/vip-ticket", handlers.ClaimVIPTicket(db))
			player.GET("/:user_id/inventory", handlers.GetInventory(db))
			player.GET("/:user_id/notifications/ws", ws.HandleNotifyStream(rdb, func(c *gin.Context) (int64, bool) {
				id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
				return id, err == nil && id > 0
			}))
			player.POST("/:user_id/shop/buy", handlers.BuyItem(db))
		}
		v1.GET("/shop", handlers.ShopCatalog())

		// Operator surface
		v1.POST("/operator/login", handlers.OperatorLogin(db, cfg))
		admin := v1.Group("/admin")
		admin.Use(auth.OperatorMiddleware(cfg))
		{
			admin.POST("/tournament", handlers.AdminCreateTournament(db, svc, cfg))
			admin.POST("/tournament/:id/cancel", handlers.AdminCancelTournament(db, svc))
			admin.POST("/grant-coins", handlers.AdminGrantCoins(db))
			admin.GET("/audit", handlers.AdminAuditLog(db))
		}
	}
}
