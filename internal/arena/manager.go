package arena

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/game"
	"github.com/smarena/backend/internal/notify"
	"github.com/smarena/backend/internal/timerq"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrNotParticipant = errors.New("not a participant")
	ErrNotYourTurn    = errors.New("not your turn")
)

// RatingService is the slice of the rating store the arena needs.
type RatingService interface {
	Rating(userID int64, gameName string) (int, error)
	ApplyMatchResult(gameName string, winner, loser int64, draw bool) (bool, error)
}

// TournamentHook receives bracket match results. Wired after construction to
// break the arena/tournament dependency cycle.
type TournamentHook interface {
	ReportResult(ctx context.Context, tournamentID, matchID, winnerID int64) error
}

// Manager owns all live sessions and matchmaking queues. It is the injected
// orchestrator state: no globals, one instance per process wired in main.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	userSession map[int64]string
	queues      map[queueKey][]*QueueEntry
	inQueue     map[int64]*QueueEntry

	timers   *timerq.Queue
	ratings  RatingService
	notifier notify.Notifier
	hook     TournamentHook
	rdb      *redis.Client
	cfg      *config.Config
}

func NewManager(cfg *config.Config, ratings RatingService, notifier notify.Notifier, rdb *redis.Client) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		userSession: make(map[int64]string),
		queues:      make(map[queueKey][]*QueueEntry),
		inQueue:     make(map[int64]*QueueEntry),
		timers:      timerq.New(),
		ratings:     ratings,
		notifier:    notifier,
		rdb:         rdb,
		cfg:         cfg,
	}
}

// SetTournamentHook wires the bracket result sink.
func (m *Manager) SetTournamentHook(h TournamentHook) {
	m.hook = h
}

// Stop shuts down the fallback timers.
func (m *Manager) Stop() {
	m.timers.Stop()
}

// MatchResult is the outcome of a matchmaking request.
type MatchResult struct {
	Session *Session `json:"session,omitempty"`
	Queued  bool     `json:"queued"`
}

// RequestMatch finds an opponent or enqueues the seeker. VIP seekers scan the
// opposite-side VIP queue first, regular seekers the regular queue first;
// within a queue the closest rating wins, earliest entry breaking ties. A
// seeker with no partner is queued with an AI fallback deadline.
func (m *Manager) RequestMatch(userID int64, gameName, side string, ratingVal int, vip bool) (*MatchResult, error) {
	if side != "X" && side != "O" {
		return nil, fmt.Errorf("%w: side must be X or O", ErrValidation)
	}
	if _, err := game.Get(gameName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	m.mu.Lock()
	if sid, ok := m.userSession[userID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: already in session %s", ErrValidation, sid)
	}
	if _, ok := m.inQueue[userID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: already searching", ErrValidation)
	}

	for _, key := range searchOrder(gameName, side, vip) {
		partner := m.popBestLocked(key, ratingVal)
		if partner == nil {
			continue
		}
		m.timers.Cancel(fallbackHandle(partner.UserID))

		var x, o int64
		if side == "X" {
			x, o = userID, partner.UserID
		} else {
			x, o = partner.UserID, userID
		}
		s := m.createPvPSessionLocked(gameName, x, o, 0, 0)
		m.mu.Unlock()

		m.afterSessionStart(s)
		return &MatchResult{Session: s}, nil
	}

	entry := &QueueEntry{
		UserID:     userID,
		Game:       gameName,
		Side:       side,
		VIP:        vip,
		Rating:     ratingVal,
		EnqueuedAt: time.Now(),
	}
	key := queueKey{game: gameName, side: side, vip: vip}
	m.queues[key] = append(m.queues[key], entry)
	m.inQueue[userID] = entry
	m.mu.Unlock()

	wait := m.cfg.RegularFallbackAISeconds
	if vip {
		wait = m.cfg.VIPFallbackAISeconds
	}
	m.timers.Schedule(fallbackHandle(userID), time.Now().Add(time.Duration(wait)*time.Second), func() {
		m.fallbackToAI(userID)
	})

	log.Printf("[ARENA] user %d queued for %s side=%s vip=%v (fallback in %ds)", userID, gameName, side, vip, wait)
	return &MatchResult{Queued: true}, nil
}

// CancelSearch removes a seeker from the queues. Idempotent.
func (m *Manager) CancelSearch(userID int64) bool {
	m.mu.Lock()
	removed := m.removeFromQueueLocked(userID)
	m.mu.Unlock()
	m.timers.Cancel(fallbackHandle(userID))
	return removed
}

// fallbackToAI runs when a seeker's wait deadline fires. The user may have
// matched or cancelled since the timer was armed, so queue membership is
// re-checked first.
func (m *Manager) fallbackToAI(userID int64) {
	m.mu.Lock()
	entry, ok := m.inQueue[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.removeFromQueueLocked(userID)
	s := m.createAISessionLocked(entry.Game, userID, entry.Side, game.LevelNormal)
	m.mu.Unlock()

	log.Printf("[ARENA] no opponent for user %d, starting AI session %s", userID, s.ID)
	notify.Send(context.Background(), m.notifier, userID, "No opponent found, you play against the computer.")
	m.afterSessionStart(s)
}

// StartAISession starts a game against the computer at the given level.
func (m *Manager) StartAISession(userID int64, gameName, side, level string) (*Session, error) {
	if _, err := game.Get(gameName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if side != "X" && side != "O" {
		return nil, fmt.Errorf("%w: side must be X or O", ErrValidation)
	}

	m.mu.Lock()
	if sid, ok := m.userSession[userID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: already in session %s", ErrValidation, sid)
	}
	m.removeFromQueueLocked(userID)
	s := m.createAISessionLocked(gameName, userID, side, level)
	m.mu.Unlock()

	m.timers.Cancel(fallbackHandle(userID))
	m.afterSessionStart(s)
	return s, nil
}

// StartTournamentMatch creates the live session for a bracket match. Bracket
// play preempts anything casual the players are doing: queue slots are
// dropped and any live session either player still occupies is canceled
// first, so a user never holds two live sessions.
func (m *Manager) StartTournamentMatch(gameName string, playerA, playerB, tournamentID, matchID int64) (*Session, error) {
	m.mu.Lock()
	m.removeFromQueueLocked(playerA)
	m.removeFromQueueLocked(playerB)

	var preempted []*Session
	for _, uid := range []int64{playerA, playerB} {
		sid, ok := m.userSession[uid]
		if !ok {
			continue
		}
		if old := m.sessions[sid]; old != nil && old.live() {
			m.cancelLocked(old, ReasonPreempted)
			cp := *old
			preempted = append(preempted, &cp)
		}
	}

	s := m.createPvPSessionLocked(gameName, playerA, playerB, tournamentID, matchID)
	m.mu.Unlock()

	m.timers.Cancel(fallbackHandle(playerA))
	m.timers.Cancel(fallbackHandle(playerB))
	for _, old := range preempted {
		m.settle(old)
	}
	m.afterSessionStart(s)
	return s, nil
}

// createPvPSessionLocked builds a PvP session, X to move. Caller holds m.mu.
func (m *Manager) createPvPSessionLocked(gameName string, playerX, playerO, tournamentID, matchID int64) *Session {
	eng, _ := game.Get(gameName)
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Game:         gameName,
		Mode:         ModePvP,
		PlayerX:      playerX,
		PlayerO:      playerO,
		Board:        eng.InitialBoard(),
		Turn:         game.MarkX,
		Status:       StatusPlaying,
		TournamentID: tournamentID,
		MatchID:      matchID,
		CreatedAt:    now,
		LastMoveAt:   now,
	}
	m.sessions[s.ID] = s
	m.userSession[playerX] = s.ID
	m.userSession[playerO] = s.ID
	return s
}

// createAISessionLocked builds an AI session; the computer moves immediately
// when it holds X. Caller holds m.mu.
func (m *Manager) createAISessionLocked(gameName string, userID int64, side, level string) *Session {
	eng, _ := game.Get(gameName)
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Game:       gameName,
		Mode:       ModeAI,
		Board:      eng.InitialBoard(),
		Turn:       game.MarkX,
		Status:     StatusPlaying,
		AILevel:    level,
		CreatedAt:  now,
		LastMoveAt: now,
	}
	if side == "X" {
		s.PlayerX = userID
	} else {
		s.PlayerO = userID
	}
	m.sessions[s.ID] = s
	m.userSession[userID] = s.ID

	if s.playerOf(s.Turn) == 0 {
		m.aiReplyLocked(s)
	}
	return s
}

// GetSession returns a copy of a session by id.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

// GetUserSession returns a copy of the session a user currently occupies.
func (m *Manager) GetUserSession(userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sid, ok := m.userSession[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %d has no session", ErrNotFound, userID)
	}
	cp := *m.sessions[sid]
	return &cp, nil
}

// Move applies one move by a participant. On terminal boards the session
// settles; in AI mode the computer answers in the same call.
func (m *Manager) Move(sessionID string, userID int64, cell int) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if !s.live() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", ErrValidation, s.Status)
	}
	mark := s.markOf(userID)
	if mark == "" || userID == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: user %d", ErrNotParticipant, userID)
	}
	if s.Turn != mark {
		m.mu.Unlock()
		return nil, ErrNotYourTurn
	}

	eng, _ := game.Get(s.Game)
	board, err := eng.Apply(s.Board, cell, mark)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	s.Board = board
	s.LastMoveAt = time.Now()
	s.Turn = game.Opponent(mark)

	if w, done := eng.Winner(s.Board); done {
		if w == game.Draw && s.isTournament() {
			// A bracket needs a winner; drawn boards replay until one side
			// takes the match.
			s.Board = eng.InitialBoard()
			s.Turn = game.MarkX
			cp := *s
			m.mu.Unlock()
			m.notifyPlayers(context.Background(), &cp, "Draw. The board resets, play on.")
			m.publishEvent(&cp, "replay")
			m.snapshot(&cp)
			return &cp, nil
		}
		m.finishLocked(s, w, ReasonPlayed)
		cp := *s
		m.mu.Unlock()
		m.settle(&cp)
		return &cp, nil
	}

	if s.Mode == ModeAI && s.playerOf(s.Turn) == 0 {
		m.aiReplyLocked(s)
		if s.terminal() {
			cp := *s
			m.mu.Unlock()
			m.settle(&cp)
			return &cp, nil
		}
	}

	cp := *s
	m.mu.Unlock()
	m.publishEvent(&cp, "move")
	m.snapshot(&cp)
	return &cp, nil
}

// aiReplyLocked lets the computer take its turn. Caller holds m.mu and has
// verified the session is live and the computer is on turn.
func (m *Manager) aiReplyLocked(s *Session) {
	eng, _ := game.Get(s.Game)
	ai, ok := eng.(game.AIEngine)
	if !ok {
		log.Printf("[ARENA] game %s has no computer opponent, cancelling session %s", s.Game, s.ID)
		m.cancelLocked(s, ReasonPlayed)
		return
	}
	cell := ai.ChooseMove(s.Board, s.Turn, s.AILevel)
	board, err := eng.Apply(s.Board, cell, s.Turn)
	if err != nil {
		log.Printf("[ARENA] AI produced illegal move in session %s: %v", s.ID, err)
		return
	}
	s.Board = board
	s.LastMoveAt = time.Now()
	if w, done := eng.Winner(s.Board); done {
		m.finishLocked(s, w, ReasonPlayed)
		return
	}
	s.Turn = game.Opponent(s.Turn)
}

// Resign ends the session in the opponent's favor. Resigning against the
// computer just cancels the session.
func (m *Manager) Resign(sessionID string, userID int64) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if !s.live() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", ErrValidation, s.Status)
	}
	mark := s.markOf(userID)
	if mark == "" || userID == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: user %d", ErrNotParticipant, userID)
	}

	if s.Mode == ModeAI {
		m.cancelLocked(s, ReasonResign)
	} else {
		m.finishLocked(s, game.Opponent(mark), ReasonResign)
	}
	cp := *s
	m.mu.Unlock()

	m.settle(&cp)
	return &cp, nil
}

// finishLocked marks a session terminal and releases its players. It never
// runs twice for the same session: callers check live() first and all
// mutation happens under m.mu. Caller holds m.mu.
func (m *Manager) finishLocked(s *Session, winner, reason string) {
	s.Status = StatusFinished
	s.Winner = winner
	s.Reason = reason
	m.releasePlayersLocked(s)
}

// cancelLocked marks a session canceled without a result. Caller holds m.mu.
func (m *Manager) cancelLocked(s *Session, reason string) {
	s.Status = StatusCanceled
	s.Reason = reason
	m.releasePlayersLocked(s)
}

// releasePlayersLocked clears the user-to-session index for both players,
// but only where the index still points at this session. A player may already
// occupy a newer session when a replaced one settles late. Caller holds m.mu.
func (m *Manager) releasePlayersLocked(s *Session) {
	if s.PlayerX != 0 && m.userSession[s.PlayerX] == s.ID {
		delete(m.userSession, s.PlayerX)
	}
	if s.PlayerO != 0 && m.userSession[s.PlayerO] == s.ID {
		delete(m.userSession, s.PlayerO)
	}
}

// settle runs the side effects of a terminal session: rating and stats for
// PvP, the bracket hook for tournament matches, notifications for everyone.
// Runs without m.mu; the session copy is already terminal and stable.
func (m *Manager) settle(s *Session) {
	ctx := context.Background()

	if s.Status == StatusCanceled {
		text := "Game canceled."
		if s.Reason == ReasonPreempted {
			text = "Game canceled: your tournament match is starting."
		}
		m.notifyPlayers(ctx, s, text)
		m.publishEvent(s, "canceled")
		m.snapshot(s)
		return
	}

	if s.Mode == ModePvP && s.PlayerX != 0 && s.PlayerO != 0 {
		if s.Winner == game.Draw {
			if _, err := m.ratings.ApplyMatchResult(s.Game, s.PlayerX, s.PlayerO, true); err != nil {
				log.Printf("[ARENA] rating update failed for session %s: %v", s.ID, err)
			}
		} else if s.Winner != "" {
			winner := s.playerOf(s.Winner)
			loser := s.opponentOf(winner)
			if _, err := m.ratings.ApplyMatchResult(s.Game, winner, loser, false); err != nil {
				log.Printf("[ARENA] rating update failed for session %s: %v", s.ID, err)
			}
		}
	}

	if s.isTournament() && m.hook != nil && s.Winner != "" && s.Winner != game.Draw {
		winnerID := s.playerOf(s.Winner)
		if err := m.hook.ReportResult(ctx, s.TournamentID, s.MatchID, winnerID); err != nil {
			log.Printf("[ARENA] bracket result report failed for session %s: %v", s.ID, err)
		}
	}

	switch {
	case s.Winner == game.Draw:
		m.notifyPlayers(ctx, s, "Game over: draw.")
	case s.Winner != "":
		winnerID := s.playerOf(s.Winner)
		loserID := s.opponentOf(winnerID)
		if winnerID != 0 {
			notify.Send(ctx, m.notifier, winnerID, "You won!")
		}
		if loserID != 0 {
			notify.Send(ctx, m.notifier, loserID, "You lost.")
		}
	}

	m.publishEvent(s, "finished")
	m.snapshot(s)
}

func (m *Manager) notifyPlayers(ctx context.Context, s *Session, text string) {
	if s.PlayerX != 0 {
		notify.Send(ctx, m.notifier, s.PlayerX, text)
	}
	if s.PlayerO != 0 {
		notify.Send(ctx, m.notifier, s.PlayerO, text)
	}
}

// afterSessionStart publishes the opening state and tells both players.
func (m *Manager) afterSessionStart(s *Session) {
	ctx := context.Background()
	if s.Mode == ModePvP {
		m.notifyPlayers(ctx, s, "Opponent found, game on. X moves first.")
	}
	m.publishEvent(s, "started")
	m.snapshot(s)
	log.Printf("[ARENA] session %s started: game=%s mode=%s x=%d o=%d", s.ID, s.Game, s.Mode, s.PlayerX, s.PlayerO)
}

func fallbackHandle(userID int64) string {
	return fmt.Sprintf("fallback:%d", userID)
}
