package tournament

// Bracket math. Seeds are user ids; 0 marks a bye slot.

// nextPow2 returns the smallest power of two >= n (minimum 1).
func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// prevPow2 returns the largest power of two <= n (minimum 1).
func prevPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// bracketSeeds truncates the seeded player list to the tournament size and
// pads it to a power of two with byes. Players must already be ordered by
// seeding (rating desc, join time asc). The cap is clamped down to a power of
// two first, so no player is ever cut while a bye slot remains. The second
// return value lists the overflow players cut from the bracket.
func bracketSeeds(players []int64, maxSize int) (seeds []int64, cut []int64) {
	size := nextPow2(len(players))
	if maxSize > 0 {
		if limit := prevPow2(maxSize); limit < size {
			size = limit
		}
	}
	if size < len(players) {
		cut = append(cut, players[size:]...)
		players = players[:size]
	}
	seeds = make([]int64, nextPow2(len(players)))
	copy(seeds, players)
	return seeds, cut
}

// foldPairs pairs the strongest seed with the weakest, second with
// second-weakest, and so on. A zero in a pair is a bye.
func foldPairs(seeds []int64) [][2]int64 {
	var pairs [][2]int64
	for i, j := 0, len(seeds)-1; i < j; i, j = i+1, j-1 {
		pairs = append(pairs, [2]int64{seeds[i], seeds[j]})
	}
	return pairs
}

// pairWinners pairs the previous round's winners two by two in match order.
// An odd leftover gets a bye.
func pairWinners(winners []int64) [][2]int64 {
	var pairs [][2]int64
	for i := 0; i < len(winners); i += 2 {
		if i+1 < len(winners) {
			pairs = append(pairs, [2]int64{winners[i], winners[i+1]})
		} else {
			pairs = append(pairs, [2]int64{winners[i], 0})
		}
	}
	return pairs
}
