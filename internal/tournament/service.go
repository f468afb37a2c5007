package tournament

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/models"
	"github.com/smarena/backend/internal/notify"
)

// MatchStarter launches the live session for a bracket match. The arena
// manager satisfies it through a small adapter wired in main.
type MatchStarter interface {
	StartTournamentMatch(gameName string, playerA, playerB, tournamentID, matchID int64) (sessionID string, err error)
}

// RatingProvider supplies the seeding rating captured at join time.
type RatingProvider interface {
	Rating(userID int64, gameName string) (int, error)
}

// Service drives the tournament pipeline: registration, reminders, bracket
// generation, round advancement and settlement.
type Service struct {
	store    Store
	starter  MatchStarter
	ratings  RatingProvider
	notifier notify.Notifier
	cfg      *config.Config
}

func NewService(store Store, starter MatchStarter, ratings RatingProvider, notifier notify.Notifier, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		starter:  starter,
		ratings:  ratings,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Create opens registration for a new tournament. Any live tournament for the
// same game is cancelled first, refunding its players.
func (s *Service) Create(ctx context.Context, gameName, title string, size, fee int, regEndsAt time.Time, dayKey, createdBy string) (int64, error) {
	prior, err := s.store.ActiveByGame(ctx, gameName)
	if err != nil {
		return 0, err
	}
	if prior != nil {
		players, perr := s.store.Players(ctx, prior.ID)
		if cerr := s.store.Cancel(ctx, prior.ID); cerr != nil && !errors.Is(cerr, ErrAlreadyProcessed) {
			return 0, fmt.Errorf("failed to cancel prior tournament %d: %w", prior.ID, cerr)
		}
		if perr == nil {
			for _, p := range players {
				notify.Send(ctx, s.notifier, p.UserID,
					fmt.Sprintf("Tournament %q was replaced; your entry was refunded.", prior.Title))
			}
		}
		log.Printf("[TOURN] prior tournament %d for %s cancelled before create", prior.ID, gameName)
	}

	return s.store.Create(ctx, NewTournament{
		Game:      gameName,
		Title:     title,
		Size:      size,
		EntryFee:  fee,
		RegEndsAt: regEndsAt,
		DayKey:    dayKey,
		CreatedBy: createdBy,
	})
}

// CreateDaily creates the automatic daily tournament for a game. The day key
// makes repeats a no-op.
func (s *Service) CreateDaily(ctx context.Context, gameName string) (int64, error) {
	dayKey := time.Now().UTC().Format("2006-01-02")
	title := fmt.Sprintf("Daily %s tournament %s", gameName, dayKey)
	regEnds := time.Now().Add(time.Duration(s.cfg.TournamentRegMinutes) * time.Minute)
	id, err := s.Create(ctx, gameName, title, s.cfg.TournamentSize, s.cfg.TournamentEntryFee, regEnds, dayKey, "scheduler")
	if errors.Is(err, ErrAlreadyProcessed) {
		log.Printf("[TOURN] daily tournament for %s already exists today", gameName)
		return 0, err
	}
	return id, err
}

// Join registers a player, paying the fee from coins or a ticket. Joining
// twice succeeds without charging again.
func (s *Service) Join(ctx context.Context, tournamentID, userID int64, useTicket bool) error {
	t, err := s.store.Get(ctx, tournamentID)
	if err != nil {
		return err
	}
	ratingVal, err := s.ratings.Rating(userID, t.Game)
	if err != nil {
		return err
	}
	err = s.store.Join(ctx, tournamentID, userID, ratingVal, useTicket)
	if errors.Is(err, ErrAlreadyProcessed) {
		return nil
	}
	if err != nil {
		return err
	}
	notify.Send(ctx, s.notifier, userID, fmt.Sprintf("You joined %q.", t.Title))
	return nil
}

// Leave withdraws a player during registration with a refund. Leaving a
// tournament never joined succeeds.
func (s *Service) Leave(ctx context.Context, tournamentID, userID int64) error {
	err := s.store.Leave(ctx, tournamentID, userID)
	if errors.Is(err, ErrAlreadyProcessed) {
		return nil
	}
	return err
}

// Cancel aborts a tournament and refunds everyone.
func (s *Service) Cancel(ctx context.Context, tournamentID int64) error {
	players, perr := s.store.Players(ctx, tournamentID)
	if err := s.store.Cancel(ctx, tournamentID); err != nil {
		return err
	}
	if perr == nil {
		for _, p := range players {
			notify.Send(ctx, s.notifier, p.UserID, "The tournament was cancelled; your entry was refunded.")
		}
	}
	return nil
}

// Get returns one tournament.
func (s *Service) Get(ctx context.Context, id int64) (*models.Tournament, error) {
	return s.store.Get(ctx, id)
}

// ActiveByGame returns the live tournament for a game, if any.
func (s *Service) ActiveByGame(ctx context.Context, gameName string) (*models.Tournament, error) {
	return s.store.ActiveByGame(ctx, gameName)
}

// Players lists a tournament's participants.
func (s *Service) Players(ctx context.Context, id int64) ([]models.TournamentPlayer, error) {
	return s.store.Players(ctx, id)
}

// Bracket lists a tournament's matches in round order.
func (s *Service) Bracket(ctx context.Context, id int64) ([]models.TournamentMatch, error) {
	return s.store.Matches(ctx, id)
}

// TopPoints returns the points leaderboard for a game ("all" for overall).
func (s *Service) TopPoints(ctx context.Context, gameName string, limit int) ([]models.TournamentPoints, error) {
	return s.store.TopPoints(ctx, gameName, limit)
}

// RunRegistrar polls open registrations: it sends the two closing reminders
// and starts or cancels tournaments whose registration expired.
func (s *Service) RunRegistrar(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	log.Printf("[TOURN] registrar started")
	for {
		select {
		case <-ctx.Done():
			log.Printf("[TOURN] registrar stopped")
			return
		case <-ticker.C:
			s.registrarPass(ctx, time.Now())
		}
	}
}

// registrarPass is one registrar sweep, separated out for tests.
func (s *Service) registrarPass(ctx context.Context, now time.Time) {
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		log.Printf("[TOURN] registrar list failed: %v", err)
		return
	}

	for i := range open {
		t := &open[i]
		remaining := t.RegEndsAt.Sub(now)

		if remaining <= 0 {
			if err := s.closeAndStart(ctx, t); err != nil {
				log.Printf("[TOURN] close failed for tournament %d: %v", t.ID, err)
			}
			continue
		}

		if remaining <= time.Duration(s.cfg.RemindFinalSeconds)*time.Second {
			s.sendReminder(ctx, t, true, remaining)
		} else if remaining <= time.Duration(s.cfg.RemindFirstSeconds)*time.Second {
			s.sendReminder(ctx, t, false, remaining)
		}
	}
}

func (s *Service) sendReminder(ctx context.Context, t *models.Tournament, final bool, remaining time.Duration) {
	fresh, err := s.store.MarkReminder(ctx, t.ID, final)
	if err != nil {
		log.Printf("[TOURN] reminder flag failed for tournament %d: %v", t.ID, err)
		return
	}
	if !fresh {
		return
	}
	players, err := s.store.Players(ctx, t.ID)
	if err != nil {
		log.Printf("[TOURN] reminder players failed for tournament %d: %v", t.ID, err)
		return
	}
	text := fmt.Sprintf("%q starts in %d seconds.", t.Title, int(remaining.Seconds()))
	for _, p := range players {
		notify.Send(ctx, s.notifier, p.UserID, text)
	}
}

// closeAndStart ends registration: too few players cancels with refunds,
// otherwise the bracket is generated and round one begins.
func (s *Service) closeAndStart(ctx context.Context, t *models.Tournament) error {
	players, err := s.store.Players(ctx, t.ID)
	if err != nil {
		return err
	}
	if len(players) < s.cfg.TournamentMinPlayers {
		log.Printf("[TOURN] tournament %d has %d players (< %d), cancelling",
			t.ID, len(players), s.cfg.TournamentMinPlayers)
		return s.Cancel(ctx, t.ID)
	}

	cut, err := s.store.GenerateBracket(ctx, t.ID, t.Size)
	if err != nil {
		return err
	}
	for _, uid := range cut {
		notify.Send(ctx, s.notifier, uid, "The bracket filled up; your entry was refunded.")
	}

	return s.RunPending(ctx, t.ID)
}

// RunPending starts live sessions for every playable match.
func (s *Service) RunPending(ctx context.Context, tournamentID int64) error {
	t, err := s.store.Get(ctx, tournamentID)
	if err != nil {
		return err
	}

	pending, err := s.store.PendingMatches(ctx, tournamentID)
	if err != nil {
		return err
	}
	for _, match := range pending {
		sessionID, err := s.starter.StartTournamentMatch(t.Game, match.PlayerA.Int64, match.PlayerB.Int64, tournamentID, match.ID)
		if err != nil {
			log.Printf("[TOURN] failed to start match %d: %v", match.ID, err)
			continue
		}
		if err := s.store.MarkMatchPlaying(ctx, match.ID, sessionID); err != nil {
			log.Printf("[TOURN] failed to mark match %d playing: %v", match.ID, err)
		}
	}

	// Rounds made entirely of byes resolve without play.
	return s.advance(ctx, tournamentID)
}

// ReportResult is the arena's result sink for bracket matches.
func (s *Service) ReportResult(ctx context.Context, tournamentID, matchID, winnerID int64) error {
	fresh, err := s.store.SetMatchResult(ctx, matchID, winnerID)
	if err != nil {
		return err
	}
	if !fresh {
		log.Printf("[TOURN] match %d already settled, ignoring repeat result", matchID)
		return nil
	}
	if err := s.advance(ctx, tournamentID); err != nil {
		return err
	}
	return s.RunPending(ctx, tournamentID)
}

// advance pushes the bracket forward and announces settlement when the final
// winner is known.
func (s *Service) advance(ctx context.Context, tournamentID int64) error {
	settlement, err := s.store.AdvanceRound(ctx, tournamentID)
	if err != nil {
		return err
	}
	if settlement == nil {
		return nil
	}

	notify.Send(ctx, s.notifier, settlement.Champion,
		fmt.Sprintf("Champion! You won %d coins.", settlement.ChampionPrize))
	if settlement.RunnerUp != 0 {
		notify.Send(ctx, s.notifier, settlement.RunnerUp,
			fmt.Sprintf("Runner-up! You won %d coins.", settlement.RunnerUpPrize))
	}
	for _, uid := range settlement.Participants {
		if uid != settlement.Champion && uid != settlement.RunnerUp {
			notify.Send(ctx, s.notifier, uid, "The tournament is over. Thanks for playing!")
		}
	}
	return nil
}

// RegistrarPassNow is the test hook for one registrar sweep.
func (s *Service) RegistrarPassNow(ctx context.Context, now time.Time) {
	s.registrarPass(ctx, now)
}
