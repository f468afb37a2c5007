package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/smarena/backend/internal/api"
	"github.com/smarena/backend/internal/arena"
	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/database"
	"github.com/smarena/backend/internal/migrations"
	"github.com/smarena/backend/internal/notify"
	"github.com/smarena/backend/internal/rating"
	"github.com/smarena/backend/internal/redis"
	"github.com/smarena/backend/internal/scheduler"
	"github.com/smarena/backend/internal/tournament"
)

// arenaStarter adapts the arena manager to the tournament service's starter
// interface.
type arenaStarter struct {
	manager *arena.Manager
}

func (a arenaStarter) StartTournamentMatch(gameName string, playerA, playerB, tournamentID, matchID int64) (string, error) {
	s, err := a.manager.StartTournamentMatch(gameName, playerA, playerB, tournamentID, matchID)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	notifier := notify.NewRedisNotifier(rdb)
	ratings := rating.NewStore(db, cfg.DefaultRating, cfg.EloK, cfg.AntiBoostWindowHours, cfg.AntiBoostMaxRated)

	manager := arena.NewManager(cfg, ratings, notifier, rdb)
	defer manager.Stop()

	store := tournament.NewSQLStore(db, tournament.Rules{
		MinPlayers:          cfg.TournamentMinPlayers,
		ArenaFeePercent:     cfg.ArenaFeePercent,
		WinnerPercent:       cfg.WinnerPercent,
		RunnerUpPercent:     cfg.RunnerUpPercent,
		PointsJoin:          cfg.PointsJoin,
		PointsWin:           cfg.PointsWin,
		PointsChampionBonus: cfg.PointsChampionBonus,
		PointsRunnerUpBonus: cfg.PointsRunnerUpBonus,
		StreakTarget:        cfg.StreakTarget,
		StreakBonusCoins:    cfg.StreakBonusCoins,
	})
	svc := tournament.NewService(store, arenaStarter{manager}, ratings, notifier, cfg)
	manager.SetTournamentHook(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session watchdog and AI fallback timers
	manager.StartWorkers(ctx)

	// Daily tournaments, registrar sweep and VIP payouts
	sched, err := scheduler.New(svc, db, notifier, cfg)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, db, rdb, manager, svc, ratings, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Smarena server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
