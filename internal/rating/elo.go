package rating

import "math"

// Score values for a single game from one player's perspective.
const (
	ScoreLoss = 0.0
	ScoreDraw = 0.5
	ScoreWin  = 1.0
)

// ExpectedScore is the classic Elo expectation:
// E = 1 / (1 + 10^((opponent - player) / 400))
func ExpectedScore(player, opponent int) float64 {
	exponent := float64(opponent-player) / 400.0
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// NextRating applies one game result with the given K-factor.
func NextRating(player, opponent int, score float64, k int) int {
	expected := ExpectedScore(player, opponent)
	return player + int(math.Round(float64(k)*(score-expected)))
}

// UpdatePair returns both players' new ratings after a decisive game or draw.
// aScore is the first player's score (1 win, 0.5 draw, 0 loss).
func UpdatePair(a, b int, aScore float64, k int) (newA, newB int) {
	newA = NextRating(a, b, aScore, k)
	newB = NextRating(b, a, 1.0-aScore, k)
	return newA, newB
}
