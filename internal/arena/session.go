package arena

import (
	"time"
)

// Session modes. Tournament play is PvP with a bracket linkage.
const (
	ModeAI  = "ai"
	ModePvP = "pvp"
)

// Session statuses.
const (
	StatusPlaying  = "playing"
	StatusFinished = "finished"
	StatusCanceled = "canceled"
)

// Finish reasons.
const (
	ReasonPlayed    = "played"
	ReasonResign    = "resign"
	ReasonTimeout   = "timeout"
	ReasonTechLoss  = "tech_loss"
	ReasonPreempted = "preempted"
)

// Session is one live or settled game. PlayerO is 0 when the opponent is the
// computer. All fields are guarded by the manager's mutex while the session
// is live.
type Session struct {
	ID      string `json:"id"`
	Game    string `json:"game"`
	Mode    string `json:"mode"`
	PlayerX int64  `json:"player_x"`
	PlayerO int64  `json:"player_o"`
	AILevel string `json:"ai_level,omitempty"`

	Board  string `json:"board"`
	Turn   string `json:"turn"`
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`

	TournamentID int64 `json:"tournament_id,omitempty"`
	MatchID      int64 `json:"match_id,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastMoveAt time.Time `json:"last_move_at"`
}

// live reports whether the session still accepts moves.
func (s *Session) live() bool {
	return s.Status == StatusPlaying
}

// terminal reports whether the session reached a final state.
func (s *Session) terminal() bool {
	return s.Status == StatusFinished || s.Status == StatusCanceled
}

// markOf returns the mark a user plays in this session, or "".
func (s *Session) markOf(userID int64) string {
	switch userID {
	case s.PlayerX:
		return "X"
	case s.PlayerO:
		return "O"
	}
	return ""
}

// playerOf returns the user holding a mark (0 for the computer).
func (s *Session) playerOf(mark string) int64 {
	if mark == "X" {
		return s.PlayerX
	}
	return s.PlayerO
}

// opponentOf returns the other participant's id (0 for the computer).
func (s *Session) opponentOf(userID int64) int64 {
	if userID == s.PlayerX {
		return s.PlayerO
	}
	return s.PlayerX
}

func (s *Session) isTournament() bool {
	return s.TournamentID != 0
}
