// Package scheduler runs the recurring background jobs: the daily tournament
// creation, the registrar sweep and the VIP daily coin payout.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/game"
	"github.com/smarena/backend/internal/ledger"
	"github.com/smarena/backend/internal/notify"
	"github.com/smarena/backend/internal/tournament"
)

type Scheduler struct {
	sched    gocron.Scheduler
	service  *tournament.Service
	db       *sqlx.DB
	notifier notify.Notifier
	cfg      *config.Config
}

func New(service *tournament.Service, db *sqlx.DB, notifier notify.Notifier, cfg *config.Config) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		sched:    sched,
		service:  service,
		db:       db,
		notifier: notifier,
		cfg:      cfg,
	}, nil
}

// Start registers the jobs and launches the scheduler plus the registrar loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(s.cfg.DailyTournamentHour), uint(s.cfg.DailyTournamentMinute), 0),
		)),
		gocron.NewTask(func() { s.createDailyTournaments(ctx) }),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule daily tournaments: %w", err)
	}

	_, err = s.sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() { s.payVIPDailies(ctx) }),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule vip payouts: %w", err)
	}

	s.sched.Start()
	go s.service.RunRegistrar(ctx)

	log.Printf("[SCHED] scheduler started (daily tournaments at %02d:%02d)",
		s.cfg.DailyTournamentHour, s.cfg.DailyTournamentMinute)
	return nil
}

func (s *Scheduler) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		log.Printf("[SCHED] shutdown error: %v", err)
	}
}

// createDailyTournaments opens the daily tournament for every registered game.
// The day key makes reruns harmless.
func (s *Scheduler) createDailyTournaments(ctx context.Context) {
	for _, gameName := range game.Names() {
		id, err := s.service.CreateDaily(ctx, gameName)
		if errors.Is(err, tournament.ErrAlreadyProcessed) {
			continue
		}
		if err != nil {
			log.Printf("[SCHED] daily tournament for %s failed: %v", gameName, err)
			continue
		}
		log.Printf("[SCHED] daily tournament %d created for %s", id, gameName)
	}
}

// payVIPDailies credits the daily VIP coin bonus to every VIP whose last
// payout is more than a day old.
func (s *Scheduler) payVIPDailies(ctx context.Context) {
	if s.db == nil {
		return
	}
	due, err := ledger.ListVIPDue(s.db)
	if err != nil {
		log.Printf("[SCHED] vip payout list failed: %v", err)
		return
	}
	for _, vip := range due {
		err := ledger.PayVIPDaily(s.db, vip.UserID, s.cfg.VIPDailyCoins)
		if errors.Is(err, ledger.ErrAlreadyProcessed) {
			continue
		}
		if err != nil {
			log.Printf("[SCHED] vip payout for user %d failed: %v", vip.UserID, err)
			continue
		}
		notify.Send(ctx, s.notifier, vip.UserID,
			fmt.Sprintf("VIP bonus: %d coins added to your balance.", s.cfg.VIPDailyCoins))
	}
}
