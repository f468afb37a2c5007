package rating

import (
	"fmt"
	"time"

	"github.com/smarena/backend/internal/models"
)

// PairKey builds the order-independent key for a pair of players.
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// pairAllowed decides whether the next decisive game between a pair counts for
// rating. No history means yes; an elapsed window resets the count; otherwise
// the pair must still be under the per-window cap.
func pairAllowed(stats *models.PairStats, now time.Time, window time.Duration, maxRated int) bool {
	if stats == nil {
		return true
	}
	if now.Sub(stats.WindowStart) >= window {
		return true
	}
	return stats.RatedCount < maxRated
}

// nextPairStats returns the updated counters after a rated game. A fresh or
// expired window restarts the count at 1, otherwise it increments.
func nextPairStats(stats *models.PairStats, now time.Time, window time.Duration) (ratedCount int, windowStart time.Time, totalGames int) {
	if stats == nil || now.Sub(stats.WindowStart) >= window {
		return 1, now, totalOf(stats) + 1
	}
	return stats.RatedCount + 1, stats.WindowStart, stats.TotalGames + 1
}

func totalOf(stats *models.PairStats) int {
	if stats == nil {
		return 0
	}
	return stats.TotalGames
}
